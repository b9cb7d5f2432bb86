package taxflow

// Version is the build version, overridden at link time.
var Version = "dev"
