// Command bot is a scripted trainer: it drives a worker through random-action
// episodes and prints per-episode reward totals. Useful for smoke-testing a
// worker without a learning stack attached.
package main

import (
	"flag"
	"log"
	"math/rand"
	"os"

	"meshgym.ai/internal/client"
)

func main() {
	var (
		addr     = flag.String("addr", "127.0.0.1:5005", "worker address")
		episodes = flag.Int("episodes", 3, "episodes to run")
		seed     = flag.Int64("seed", 1, "action stream seed")
		savePath = flag.String("save", "", "export the scene here after the last episode (optional)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)

	c, err := client.Dial(*addr)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer c.Close()

	if err := c.Ping(); err != nil {
		logger.Fatalf("ping: %v", err)
	}

	rng := rand.New(rand.NewSource(*seed))
	for ep := 1; ep <= *episodes; ep++ {
		obs, err := c.Reset()
		if err != nil {
			logger.Fatalf("reset: %v", err)
		}
		logger.Printf("episode %d: n_objs=%d n_tris=%d", ep, obs.NObjs, obs.NTris)

		var total float64
		steps := 0
		for {
			rep, err := c.Step(rng.Intn(4))
			if err != nil {
				logger.Fatalf("step: %v", err)
			}
			total += rep.Reward
			steps++
			if rep.Done {
				break
			}
		}
		logger.Printf("episode %d: steps=%d total_reward=%.4f", ep, steps, total)
	}

	if *savePath != "" {
		rep, err := c.Save(*savePath)
		if err != nil {
			logger.Fatalf("save: %v", err)
		}
		if !rep.Saved {
			logger.Fatalf("save failed: %s", rep.Error)
		}
		logger.Printf("saved scene to %s", rep.Path)
	}

	if err := c.End(); err != nil {
		logger.Fatalf("close: %v", err)
	}
}
