// Command schedule_diff compares generated calendars between two running
// deployments of the timetable API. It is meant for verifying that an
// engine or template change does not alter previously published schedules:
// point -base-a at the current release, -base-b at the candidate, and list
// the timetables and ranges to check in a JSON targets file.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"
)

type target struct {
	TimetableID string `json:"timetable_id"`
	From        string `json:"from"`
	Until       string `json:"until"`
	Critical    bool   `json:"critical"`
}

type config struct {
	Targets []target `json:"targets"`
}

type comparison struct {
	Target      target
	StatusA     int
	StatusB     int
	StatusMatch bool
	DaysMatch   bool
	Error       error
	DurationA   time.Duration
	DurationB   time.Duration
}

func main() {
	var (
		baseA       string
		baseB       string
		apiPrefix   string
		targetsPath string
		timeout     time.Duration
	)

	flag.StringVar(&baseA, "base-a", "http://localhost:8080", "Base URL of the reference deployment")
	flag.StringVar(&baseB, "base-b", "http://localhost:8081", "Base URL of the candidate deployment")
	flag.StringVar(&apiPrefix, "api-prefix", "/api/v1", "API route prefix on both deployments")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "schedule_diff", "targets.json"), "Path to JSON targets file")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.Parse()

	targets, err := loadTargets(targetsPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	var (
		comparisons  []comparison
		breaking     int
		optionalDiff int
	)

	for _, t := range targets {
		comp := compareTarget(client, baseA, baseB, apiPrefix, t)
		if comp.Error != nil {
			if t.Critical {
				breaking++
			}
		} else if !comp.StatusMatch || !comp.DaysMatch {
			if t.Critical {
				breaking++
			} else {
				optionalDiff++
			}
		}
		comparisons = append(comparisons, comp)
	}

	printReport(comparisons)

	fmt.Printf("Breaking diffs: %d, Optional diffs: %d\n", breaking, optionalDiff)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	for _, t := range cfg.Targets {
		if t.TimetableID == "" || t.From == "" || t.Until == "" {
			return nil, fmt.Errorf("target missing timetable_id, from or until in %s", path)
		}
	}
	return cfg.Targets, nil
}

func compareTarget(client *http.Client, baseA, baseB, apiPrefix string, tgt target) comparison {
	comp := comparison{Target: tgt}

	bodyA, statusA, durA, errA := fetchMeetings(client, baseA, apiPrefix, tgt)
	bodyB, statusB, durB, errB := fetchMeetings(client, baseB, apiPrefix, tgt)
	comp.DurationA = durA
	comp.DurationB = durB

	if errA != nil {
		comp.Error = fmt.Errorf("reference request failed: %w", errA)
		return comp
	}
	if errB != nil {
		comp.Error = fmt.Errorf("candidate request failed: %w", errB)
		return comp
	}

	comp.StatusA = statusA
	comp.StatusB = statusB
	comp.StatusMatch = statusA == statusB

	daysA, err := extractDays(bodyA)
	if err != nil {
		comp.Error = fmt.Errorf("parse reference body: %w", err)
		return comp
	}
	daysB, err := extractDays(bodyB)
	if err != nil {
		comp.Error = fmt.Errorf("parse candidate body: %w", err)
		return comp
	}
	comp.DaysMatch = reflect.DeepEqual(daysA, daysB)

	return comp
}

func fetchMeetings(client *http.Client, base, apiPrefix string, tgt target) ([]byte, int, time.Duration, error) {
	address := strings.TrimRight(base, "/") + apiPrefix +
		"/timetables/" + url.PathEscape(tgt.TimetableID) + "/meetings" +
		"?from=" + url.QueryEscape(tgt.From) + "&until=" + url.QueryEscape(tgt.Until)

	req, err := http.NewRequest(http.MethodGet, address, nil)
	if err != nil {
		return nil, 0, 0, err
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, 0, err
	}
	return body, resp.StatusCode, time.Since(start), nil
}

// extractDays pulls the day list out of the response envelope so that
// volatile metadata such as request IDs never shows up as a diff.
func extractDays(body []byte) (interface{}, error) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	if len(envelope.Data) == 0 {
		return nil, nil
	}
	var days interface{}
	if err := json.Unmarshal(envelope.Data, &days); err != nil {
		return nil, err
	}
	normalize(&days)
	return days, nil
}

func normalize(v *interface{}) {
	switch val := (*v).(type) {
	case map[string]interface{}:
		for k, v2 := range val {
			normalize(&v2)
			val[k] = v2
		}
	case []interface{}:
		for i, v2 := range val {
			normalize(&v2)
			val[i] = v2
		}
	case float64:
		if val == float64(int64(val)) {
			*v = int64(val)
		}
	}
}

func printReport(results []comparison) {
	fmt.Println("Schedule Diff Report")
	fmt.Println("====================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if !res.StatusMatch || !res.DaysMatch {
			status = "DIFF"
		}
		fmt.Printf("[%s] %s %s..%s\n", status, res.Target.TimetableID, res.Target.From, res.Target.Until)
		fmt.Printf("  Reference: %d (%s) | Candidate: %d (%s)\n", res.StatusA, res.DurationA, res.StatusB, res.DurationB)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
		} else {
			fmt.Printf("  Status match: %t | Days match: %t | Critical: %t\n", res.StatusMatch, res.DaysMatch, res.Target.Critical)
		}
	}
}
