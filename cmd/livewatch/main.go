package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rollcall/internal/client"
	"rollcall/internal/device"
	"rollcall/internal/geo"
)

// livewatch drives the attendance client from a terminal: submit marks
// attendance for one student, watch tails a live session until it closes.
func main() {
	var (
		server = flag.String("server", "http://localhost:8080", "attendance API base URL")
		auth   = flag.String("auth", client.DefaultStorageFile, "path to the persisted auth blob")
		matric = flag.String("matric", "", "matric number to submit attendance for")
		code   = flag.String("code", "", "4-digit session code")
		level  = flag.String("level", "", "course level (100-600)")
		lat    = flag.Float64("lat", 0, "latitude of the fixed position fix")
		lng    = flag.Float64("lng", 0, "longitude of the fixed position fix")
		acc    = flag.Float64("accuracy", 25, "accuracy of the fixed position fix in meters")
		watch  = flag.String("watch", "", "session id to tail instead of submitting")
		every  = flag.Duration("every", client.DefaultPollInterval, "poll cadence when watching")
		ua     = flag.String("ua", "livewatch/1.0 (Linux x86_64)", "user agent reported in the device profile")
	)
	flag.Parse()

	c := client.New(*server, client.NewCredentials(*auth))

	if *watch != "" {
		watchSession(c, *watch, *every)
		return
	}

	if *matric == "" || *code == "" || *level == "" {
		flag.Usage()
		os.Exit(2)
	}
	submit(c, submitArgs{
		matric: *matric, code: *code, level: *level,
		lat: *lat, lng: *lng, accuracy: *acc, userAgent: *ua,
	})
}

type submitArgs struct {
	matric, code, level string
	lat, lng, accuracy  float64
	userAgent           string
}

// fixedSource serves one pre-surveyed position fix, standing in for a live
// positioning backend.
type fixedSource struct {
	sample geo.Sample
}

func (s fixedSource) Position(ctx context.Context, highAccuracy bool) (geo.Sample, error) {
	return s.sample, nil
}

func submit(c *client.Client, args submitArgs) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	acquirer := geo.NewAcquirer(fixedSource{sample: geo.Sample{
		Lat:      args.lat,
		Lng:      args.lng,
		Accuracy: args.accuracy,
	}}, geo.DefaultOptions())
	loc, err := acquirer.Acquire(ctx)
	if err != nil {
		log.Fatalf("position fix failed: %s", geo.Message(err))
	}

	info := device.NewInfo(device.Profile{
		UserAgent:           args.userAgent,
		Language:            "en-US",
		ScreenWidth:         1920,
		ScreenHeight:        1080,
		Timezone:            "Africa/Lagos",
		TimezoneOffsetMin:   -60,
		HardwareConcurrency: 8,
		DeviceMemoryGB:      8,
	})

	form := &client.Form{MatricNo: args.matric, SessionCode: args.code, Level: args.level}
	result := c.Submit(ctx, form, &loc, &info)

	d := client.Present(result)
	fmt.Printf("%s\n%s\n", d.Title, d.Detail)
	if d.Receipt != "" {
		fmt.Printf("receipt: %s\n", d.Receipt)
	}
	if result.Kind != client.ResultSuccess {
		os.Exit(1)
	}
}

func watchSession(c *client.Client, sessionID string, every time.Duration) {
	mon := c.NewMonitor(sessionID)
	mon.SetInterval(every)
	mon.Start()
	defer mon.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-sigCh:
			fmt.Println("stopped")
			return
		case u := <-mon.Updates():
			switch u.State {
			case client.StateLoaded:
				printSnapshot(u.Snapshot)
				if !u.Snapshot.SessionInfo.IsActive {
					fmt.Println("session closed")
					return
				}
			case client.StateErrored:
				log.Printf("snapshot fetch failed: %v", u.Err)
			}
		}
	}
}

func printSnapshot(s *client.Snapshot) {
	fmt.Printf("[%s] session %s: %d submitted, %d present\n",
		s.LiveStats.LastUpdated.Format(time.TimeOnly),
		s.SessionInfo.SessionCode,
		s.LiveStats.TotalSubmissions,
		s.LiveStats.PresentCount)
	for _, sub := range s.RecentSubmissions {
		fmt.Printf("  %s  %-20s %s\n", sub.Timestamp.Format(time.TimeOnly), sub.StudentName, sub.Status)
	}
}
