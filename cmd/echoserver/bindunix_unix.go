//go:build !windows
// +build !windows

package main

import "github.com/silentframework/netserver/pkg/netserver"

func maybeBindUnix(ns *netserver.NetServer, path string) {
	if path != "" {
		ns.BindUnix(path)
	}
}
