//go:build !noportaudio

package main

import "github.com/cellux/sigplay/device/padev"

func init() {
	backends["portaudio"] = padev.Device{}
}
