package main

import (
	"fmt"

	"github.com/fatih/color"
)

const helpString = `Shared memory H.264 consumer

Usage: avconsumerd [OPTION]...

Configuration:
  -c, --config=FILE        YAML configuration file (default: built-in)
      --log=DIRECTIVES     Log levels, e.g. "info,shm=debug" (default: $AVLOG)

Video source:
  -t, --transport=NAME     shm or websocket (default: shm)
  -f, --framing=MODE       auto, raw or envelope (default: auto)
      --shm-name=NAME      Shared memory object (default: /openauto_video_shm)
      --shm-semaphore=NAME Semaphore posted per buffer (default: <shm-name>_sem)
      --shm-size=NUM       Bytes to map (default: 6220800)
  -l, --listen=ADDR        WebSocket listen address (default: :8700)
      --no-audio           Do not attach to the audio stream

Decoding and output:
  -d, --decoder=NAME       ffmpeg or none (default: ffmpeg)
  -o, --dump=FILE          Write decoded I420 frames to FILE
  -s, --snapshot=FILE      Refresh FILE with a PNG of the latest frame

Miscellaneous:
  -h, --help               Prints this help message and exits
  -v, --version            Prints version information and exits

Please report bugs to: aloha@lanikailabs.com`

// Help information is printed and program exits
func help() {
	r := color.New(color.FgRed)
	b := color.New(color.FgCyan)

	//    __ ___   __
	//   / _` \ \ / /
	//  | (_| |\ V /
	//   \__,_| \_/

	r.Printf("   __ _")
	b.Println("__   __")

	r.Printf("  / _` ")
	b.Println("\\ \\ / /")

	r.Printf(" | (_| |")
	b.Println("\\ V / ")

	r.Printf("  \\__,_|")
	b.Println(" \\_/  ")

	fmt.Println()
	fmt.Println(helpString)
}

// Populated via -ldflags="-X ...".
var GitRevisionId string

// version displays information and exits successfully (GNU convention)
func version() {
	fmt.Println("avconsumerd", GitRevisionId)
	fmt.Println("Copyright 2019 Lanikai Labs LLC. All rights reserved.")
}
