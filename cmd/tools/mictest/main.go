// mictest is a manual diagnostic for the Pulse capture path: it lists input
// sources, applies the configured selection policy, and optionally holds the
// device for a few seconds to confirm samples arrive.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"mockly/internal/config"
	"mockly/internal/media"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env, using system environment: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	listOnly := flag.Bool("list", false, "list input devices and exit")
	input := flag.String("input", cfg.Media.Input, "preferred input device (substring match)")
	fallback := flag.String("fallback", cfg.Media.Fallback, "fallback input device (substring match)")
	hold := flag.Duration("hold", 5*time.Second, "how long to hold the capture stream")
	flag.Parse()

	ctx := context.Background()

	devices, err := media.ListDevices(ctx)
	if err != nil {
		log.Fatalf("failed to list devices: %v", err)
	}

	fmt.Printf("found %d input devices:\n", len(devices))
	for _, dev := range devices {
		marker := " "
		if dev.Default {
			marker = "*"
		}
		fmt.Printf("%s %-40s %-12s available=%-5v muted=%-5v %s\n",
			marker, dev.ID, dev.State, dev.Available, dev.Muted, dev.Description)
	}

	if *listOnly {
		return
	}

	selection, err := media.SelectDevice(ctx, *input, *fallback)
	if err != nil {
		log.Fatalf("device selection failed: %v", err)
	}
	if selection.Warning != "" {
		log.Printf("warning: %s", selection.Warning)
	}
	fmt.Printf("\nselected: %s (%s)\n", selection.Device.ID, selection.Device.Description)

	mediaCfg := config.MediaConfig{Enabled: true, Input: *input, Fallback: *fallback}
	device := media.Acquire(ctx, mediaCfg, nil)
	defer device.Release()

	mic, ok := device.(*media.MicDevice)
	if !ok {
		log.Fatal("microphone could not be acquired")
	}

	fmt.Printf("holding capture stream for %s...\n", *hold)
	time.Sleep(*hold / 2)
	mic.SetMicEnabled(false)
	fmt.Println("muted for one second")
	time.Sleep(time.Second)
	mic.SetMicEnabled(true)
	time.Sleep(*hold / 2)

	fmt.Printf("captured %d bytes from %s\n", mic.BytesCaptured(), mic.Device().ID)
}
