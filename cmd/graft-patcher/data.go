package main

import _ "embed"

// archive.bin is a placeholder. A real distribution replaces it at build
// time with the compressed bundle produced by `graft create --archive`,
// using patcher.LoadArchiveFromEnv (GRAFT_PATCH_ARCHIVE) as the
// go:generate-style step that stages the file before this package builds.
//
//go:embed archive.bin
var embeddedArchive []byte
