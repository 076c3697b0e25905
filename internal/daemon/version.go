package daemon

// Version is stamped at build time via -ldflags; the default marks dev builds.
var Version = "dev"
