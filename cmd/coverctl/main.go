package main

import (
	"github.com/coverlane/coverlane/internal/cli"
	"github.com/coverlane/coverlane/internal/common/logtrace"
)

func init() {
	logtrace.InitLogger()
}

func main() {
	cli.Execute()
}
