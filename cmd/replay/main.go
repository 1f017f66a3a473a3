// Command replay inspects episode logs and optionally re-runs the logged
// actions against a fresh environment to verify the recorded rewards and
// triangle counts still reproduce.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"meshgym.ai/internal/sim/env"
	"meshgym.ai/internal/sim/scene"
	"meshgym.ai/internal/sim/tuning"
)

func main() {
	var (
		logsDir    = flag.String("logs", "./data/episodes", "episodes dir containing episodes-*.jsonl.zst")
		episode    = flag.Int("episode", 0, "only this episode (0 = all)")
		verify     = flag.Bool("verify", false, "re-run logged actions and compare rewards")
		asset      = flag.String("asset", "", "asset the worker ran with (needed for -verify)")
		tuningPath = flag.String("tuning", "", "tuning the worker ran with (default: defaults)")
	)
	flag.Parse()

	tune := tuning.Defaults()
	if *tuningPath != "" {
		var err error
		tune, err = tuning.Load(*tuningPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "load tuning:", err)
			os.Exit(1)
		}
	}

	files, err := listEpisodeFiles(*logsDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list logs:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no episode files found in", *logsDir)
		os.Exit(1)
	}

	r := &replayer{
		episode: *episode,
		verify:  *verify,
		asset:   *asset,
		tune:    tune,
	}
	for _, path := range files {
		if err := r.replayFile(path); err != nil {
			fmt.Fprintln(os.Stderr, "replay:", err)
			os.Exit(1)
		}
	}
	if *verify {
		fmt.Printf("replay ok: checked=%d steps\n", r.checked)
	}
}

func listEpisodeFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "episodes-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

type taggedEntry struct {
	Kind string          `json:"kind"`
	V    json.RawMessage `json:"v"`
}

type replayer struct {
	episode int
	verify  bool
	asset   string
	tune    tuning.Tuning

	e       *env.Env
	checked uint64
}

func (r *replayer) replayFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	for sc.Scan() {
		var entry taggedEntry
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
			return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		if err := r.handle(entry); err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
	}
	return sc.Err()
}

func (r *replayer) handle(entry taggedEntry) error {
	switch entry.Kind {
	case "episode_start":
		var v env.EpisodeStart
		if err := json.Unmarshal(entry.V, &v); err != nil {
			return err
		}
		if r.skip(v.Episode) {
			return nil
		}
		fmt.Printf("episode %d: asset=%q n_objs=%d n_tris=%d at=%s\n",
			v.Episode, v.Asset, v.NObjs, v.NTris, v.At.Format("2006-01-02T15:04:05"))
		if r.verify {
			r.e = env.New(scene.NewMemoryEngine(), r.tune, r.asset, log.New(io.Discard, "", 0))
			obs := r.e.Reset()
			if obs.NObjs != v.NObjs || obs.NTris != v.NTris {
				return fmt.Errorf("episode %d: baseline mismatch: got objs=%d tris=%d want objs=%d tris=%d",
					v.Episode, obs.NObjs, obs.NTris, v.NObjs, v.NTris)
			}
		}
	case "step":
		var v env.StepLogEntry
		if err := json.Unmarshal(entry.V, &v); err != nil {
			return err
		}
		if r.skip(v.Episode) {
			return nil
		}
		var failed int
		for _, oc := range v.Outcomes {
			if !oc.OK {
				failed++
			}
		}
		fmt.Printf("  step %d: action=%d reward=%.4f done=%v n_objs=%d n_tris=%d failed_ops=%d\n",
			v.Step, v.Action, v.Reward, v.Done, v.NObjs, v.NTris, failed)
		if r.verify {
			if r.e == nil {
				return fmt.Errorf("step %d of episode %d precedes its episode_start", v.Step, v.Episode)
			}
			obs, reward, done, _ := r.e.Step(v.Action)
			if obs.NTris != v.NTris || obs.NObjs != v.NObjs ||
				done != v.Done || math.Abs(reward-v.Reward) > 1e-9 {
				return fmt.Errorf("episode %d step %d: mismatch: got tris=%d reward=%v done=%v want tris=%d reward=%v done=%v",
					v.Episode, v.Step, obs.NTris, reward, done, v.NTris, v.Reward, v.Done)
			}
			r.checked++
		}
	case "save":
		var v env.SaveLogEntry
		if err := json.Unmarshal(entry.V, &v); err != nil {
			return err
		}
		fmt.Printf("  save: path=%s ok=%v err=%q\n", v.Path, v.OK, v.Err)
	}
	return nil
}

func (r *replayer) skip(ep int) bool { return r.episode != 0 && ep != r.episode }
