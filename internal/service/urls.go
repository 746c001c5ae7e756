package service

import (
	"net/url"
	"strconv"
)

// Canonical site paths, shared by redirects, templates and feed events.

func PostURL(id uint) string {
	return "/posts/" + strconv.FormatUint(uint64(id), 10) + "/"
}

func PostEditURL(id uint) string {
	return PostURL(id) + "edit/"
}

func ProfileURL(username string) string {
	return "/profile/" + url.PathEscape(username) + "/"
}

func GroupURL(slug string) string {
	return "/group/" + url.PathEscape(slug) + "/"
}

// LoginURL returns the login page that sends the user back to next afterwards.
func LoginURL(next string) string {
	if next == "" {
		return "/auth/login/"
	}
	return "/auth/login/?next=" + url.QueryEscape(next)
}
