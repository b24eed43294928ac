package server

// Version is overridden at build time with
// -ldflags "-X emberchain/api/server.Version=...".
var Version = "v0.1.0-dev"

func NodeVersion() string {
	return Version
}

func APIVersion() string {
	return "v1"
}
