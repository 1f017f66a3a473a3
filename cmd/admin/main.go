// Command admin queries the worker's sqlite run index from the shell:
// episode listings, per-episode step traces, and save history.
package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func main() {
	q := "episodes"
	args := os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		q = args[0]
		args = args[1:]
	}

	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (default: <data>/index/runs.db)")
	episode := fs.Int("episode", 0, "episode filter (steps)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "runs.db")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	if *limit <= 0 {
		*limit = 20
	}

	switch q {
	case "episodes":
		episodesCmd(db, *limit)
	case "steps":
		if *episode <= 0 {
			fmt.Fprintln(os.Stderr, "missing -episode")
			os.Exit(2)
		}
		stepsCmd(db, *episode)
	case "saves":
		savesCmd(db, *limit)
	default:
		fmt.Fprintf(os.Stderr, "unknown query %q (episodes|steps|saves)\n", q)
		os.Exit(2)
	}
}

func episodesCmd(db *sql.DB, limit int) {
	rows, err := db.Query(`
		SELECT e.episode, e.started_at, e.asset, e.start_objs, e.start_tris,
		       COUNT(s.step), COALESCE(SUM(s.reward), 0), COALESCE(MAX(s.done), 0)
		FROM episodes e LEFT JOIN steps s ON s.episode = e.episode
		GROUP BY e.episode ORDER BY e.episode DESC LIMIT ?`, limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	defer rows.Close()
	for rows.Next() {
		var r struct {
			Episode     int     `json:"episode"`
			StartedAt   string  `json:"started_at"`
			Asset       string  `json:"asset,omitempty"`
			StartObjs   int     `json:"start_objs"`
			StartTris   int     `json:"start_tris"`
			Steps       int     `json:"steps"`
			TotalReward float64 `json:"total_reward"`
			Done        bool    `json:"done"`
		}
		if err := rows.Scan(&r.Episode, &r.StartedAt, &r.Asset, &r.StartObjs, &r.StartTris, &r.Steps, &r.TotalReward, &r.Done); err != nil {
			fmt.Fprintln(os.Stderr, "scan:", err)
			os.Exit(1)
		}
		printJSON(r)
	}
	exitOnRowsErr(rows)
}

func stepsCmd(db *sql.DB, episode int) {
	rows, err := db.Query(`
		SELECT step, action, reward, done, n_objs, n_tris, failed_ops, at
		FROM steps WHERE episode = ? ORDER BY step`, episode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	defer rows.Close()
	for rows.Next() {
		var r struct {
			Step      int     `json:"step"`
			Action    int     `json:"action"`
			Reward    float64 `json:"reward"`
			Done      bool    `json:"done"`
			NObjs     int     `json:"n_objs"`
			NTris     int     `json:"n_tris"`
			FailedOps int     `json:"failed_ops"`
			At        string  `json:"at"`
		}
		if err := rows.Scan(&r.Step, &r.Action, &r.Reward, &r.Done, &r.NObjs, &r.NTris, &r.FailedOps, &r.At); err != nil {
			fmt.Fprintln(os.Stderr, "scan:", err)
			os.Exit(1)
		}
		printJSON(r)
	}
	exitOnRowsErr(rows)
}

func savesCmd(db *sql.DB, limit int) {
	rows, err := db.Query(`SELECT path, ok, COALESCE(error, ''), at FROM saves ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	defer rows.Close()
	for rows.Next() {
		var r struct {
			Path  string `json:"path"`
			OK    bool   `json:"ok"`
			Error string `json:"error,omitempty"`
			At    string `json:"at"`
		}
		if err := rows.Scan(&r.Path, &r.OK, &r.Error, &r.At); err != nil {
			fmt.Fprintln(os.Stderr, "scan:", err)
			os.Exit(1)
		}
		printJSON(r)
	}
	exitOnRowsErr(rows)
}

func exitOnRowsErr(rows *sql.Rows) {
	if err := rows.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "rows:", err)
		os.Exit(1)
	}
}

func printJSON(v any) {
	b, _ := json.Marshal(v)
	fmt.Println(string(b))
}
