package main

import (
	"fmt"
	"sort"

	"github.com/cellux/sigplay/device"
)

// backends maps -backend names to devices. Hardware backends register
// themselves from build-tagged files.
var backends = map[string]device.Device{
	"null": &device.Null{},
}

func backendNames() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupBackend(name string) (device.Device, error) {
	dev, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q (available: %v)", name, backendNames())
	}
	return dev, nil
}
