//go:build windows
// +build windows

package main

import (
	"github.com/silentframework/netserver/pkg/log"
	"github.com/silentframework/netserver/pkg/netserver"
)

func maybeBindUnix(ns *netserver.NetServer, path string) {
	if path != "" {
		log.WarnMsg("--unix is not supported on Windows, ignoring %s", path)
	}
}
