package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/kazz187/microwin/internal/api"
)

var (
	titleColor   = color.New(color.Bold)
	doneColor    = color.New(color.FgGreen)
	pendingColor = color.New(color.FgWhite)
	dimColor     = color.New(color.Faint)
	nextColor    = color.New(color.FgCyan, color.Bold)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
)

func successf(format string, a ...any) {
	doneColor.Printf(format, a...)
}

func warnf(format string, a ...any) {
	warnColor.Fprintf(os.Stderr, format, a...)
}

func errorf(format string, a ...any) {
	errorColor.Fprintf(os.Stderr, format, a...)
}

func printResult(res *api.TaskResult) {
	if res.Task == nil {
		dimColor.Println("No current task. Start one with `microwin new <what you want to do>`.")
		return
	}
	t := res.Task
	titleColor.Println(t.MainTask)
	fmt.Println(progressBar(res.Progress))

	nextID := ""
	if res.NextStep != nil {
		nextID = res.NextStep.ID
	}
	for i, s := range t.Steps {
		line := fmt.Sprintf("%s %d. %s%s", checkbox(s.Completed), i+1, s.Text, minutes(s.EstimatedMinutes))
		switch {
		case s.Completed:
			doneColor.Println(line)
		case s.ID == nextID:
			nextColor.Println(line + "  <- next")
		default:
			pendingColor.Println(line)
		}
		for j, sub := range s.SubSteps {
			subLine := fmt.Sprintf("    %s %d.%d %s%s", checkbox(sub.Completed), i+1, j+1, sub.Text, minutes(sub.EstimatedMinutes))
			if sub.Completed {
				doneColor.Println(subLine)
			} else {
				pendingColor.Println(subLine)
			}
		}
	}
	if res.Unsaved {
		msg := "changes are not saved yet; run `microwin sync` to retry"
		if res.Warning != "" {
			msg = res.Warning + ": " + msg
		}
		warnf("%s\n", msg)
	}
}

func printNext(res *api.TaskResult) {
	switch {
	case res.Task == nil:
		dimColor.Println("No current task.")
	case res.NextStep == nil:
		successf("Everything is done. Archive it with `microwin archive`.\n")
	default:
		s := res.NextStep
		nextColor.Printf("Next: %s%s\n", s.Text, minutes(s.EstimatedMinutes))
		for _, sub := range s.SubSteps {
			if !sub.Completed {
				fmt.Printf("  then: %s%s\n", sub.Text, minutes(sub.EstimatedMinutes))
				break
			}
		}
	}
}

func printHistory(tasks []*api.Task) {
	if len(tasks) == 0 {
		dimColor.Println("No archived tasks.")
		return
	}
	for _, t := range tasks {
		done, total := 0, 0
		for _, s := range t.Steps {
			total++
			if s.Completed {
				done++
			}
		}
		created := time.UnixMilli(t.CreatedAt).Format("2006-01-02 15:04")
		fmt.Printf("%s  %s  %s ", dimColor.Sprint(t.ID), created, t.MainTask)
		dimColor.Printf("(%d/%d steps)\n", done, total)
	}
}

func printProfile(p *api.Profile) {
	if p == nil {
		p = &api.Profile{}
	}
	fmt.Printf("granularity: %s\n", orNone(p.GranularityPreference))
	fmt.Printf("avoid:       %s\n", orNone(p.TriggersToAvoid))
	fmt.Printf("support:     %s\n", orNone(p.SupportStyle))
}

func printEvent(ev *api.Event) {
	ts := ev.CreatedAt.Local().Format("15:04:05")
	switch ev.Type {
	case "milestone_reached":
		successf("%s  Milestone reached! %s steps done\n", ts, ev.Metadata["completed_count"])
	case "action_failed":
		errorf("%s  %s failed: %s\n", ts, ev.Metadata["action"], ev.Payload)
	default:
		fmt.Printf("%s  %s %s\n", dimColor.Sprint(ts), ev.Type, ev.ResourceID)
	}
}

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

func minutes(m *float64) string {
	if m == nil {
		return ""
	}
	return " (" + strconv.FormatFloat(*m, 'f', -1, 64) + " min)"
}

func progressBar(p api.Progress) string {
	const width = 20
	filled := 0
	if p.TotalCount > 0 {
		filled = p.CompletedCount * width / p.TotalCount
	}
	return fmt.Sprintf("[%s%s] %d/%d (%.0f%%)",
		strings.Repeat("#", filled), strings.Repeat("-", width-filled),
		p.CompletedCount, p.TotalCount, p.Percent)
}

func orNone(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
