//go:build !nooto

package main

import "github.com/cellux/sigplay/device/otodev"

func init() {
	backends["oto"] = otodev.Device{}
}
