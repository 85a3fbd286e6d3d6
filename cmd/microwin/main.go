package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"

	"github.com/kazz187/microwin/internal/api"
	"github.com/kazz187/microwin/internal/client"
)

var (
	app = kingpin.New("microwin", "Break an overwhelming task into small wins")

	serverURL = app.Flag("server", "Server base URL").Envar("MICROWIN_SERVER").Default("http://localhost:3100").String()
	apiKey    = app.Flag("api-key", "API key").Envar("MICROWIN_API_KEY").Required().String()

	newCmd  = app.Command("new", "Decompose a task into steps")
	newText = newCmd.Arg("text", "What you want to get done").Required().Strings()

	showCmd = app.Command("show", "Show the current task").Default()
	nextCmd = app.Command("next", "Show the next thing to do")

	breakdownCmd = app.Command("breakdown", "Break a step into three sub-steps")
	breakdownRef = breakdownCmd.Arg("step", "Step number, e.g. 3").Required().String()

	toggleCmd = app.Command("toggle", "Mark a step or sub-step done or not done")
	toggleRef = toggleCmd.Arg("item", "Step number, or step.sub-step, e.g. 3 or 3.2").Required().String()

	clearCmd   = app.Command("clear", "Remove completed steps and sub-steps")
	syncCmd    = app.Command("sync", "Retry saving the current task")
	archiveCmd = app.Command("archive", "Move the current task to the history")

	historyCmd       = app.Command("history", "Archived tasks")
	historyListCmd   = historyCmd.Command("list", "List archived tasks").Default()
	historyDeleteCmd = historyCmd.Command("delete", "Delete an archived task")
	historyDeleteID  = historyDeleteCmd.Arg("id", "Task ID").Required().String()

	profileCmd         = app.Command("profile", "Decomposition preferences")
	profileShowCmd     = profileCmd.Command("show", "Show the profile").Default()
	profileSetCmd      = profileCmd.Command("set", "Update the profile")
	profileGranularity = profileSetCmd.Flag("granularity", "normal or high").Enum("normal", "high")
	profileTriggers    = profileSetCmd.Flag("avoid", "Triggers to avoid").String()
	profileSupport     = profileSetCmd.Flag("support", "Preferred support style").String()

	watchCmd   = app.Command("watch", "Stream events from the server")
	watchTypes = watchCmd.Flag("type", "Only show events of this type").Strings()
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := client.New(nil, *serverURL, *apiKey)
	if err := run(ctx, c, command); err != nil {
		errorf("%v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *client.Client, command string) error {
	switch command {
	case newCmd.FullCommand():
		res, err := c.CreateTask(ctx, strings.Join(*newText, " "))
		if err != nil {
			return err
		}
		printResult(res)
	case showCmd.FullCommand():
		res, err := c.Current(ctx)
		if err != nil {
			return err
		}
		printResult(res)
	case nextCmd.FullCommand():
		res, err := c.Current(ctx)
		if err != nil {
			return err
		}
		printNext(res)
	case breakdownCmd.FullCommand():
		return withItem(ctx, c, *breakdownRef, func(stepID, subStepID string) (*api.TaskResult, error) {
			if subStepID != "" {
				return nil, fmt.Errorf("only steps can be broken down")
			}
			return c.ExpandStep(ctx, stepID)
		})
	case toggleCmd.FullCommand():
		return withItem(ctx, c, *toggleRef, func(stepID, subStepID string) (*api.TaskResult, error) {
			if subStepID != "" {
				return c.ToggleSubStep(ctx, stepID, subStepID)
			}
			return c.ToggleStep(ctx, stepID)
		})
	case clearCmd.FullCommand():
		res, err := c.ClearCompleted(ctx)
		if err != nil {
			return err
		}
		printResult(res)
	case syncCmd.FullCommand():
		unsaved, err := c.Sync(ctx)
		if err != nil {
			return err
		}
		if unsaved {
			warnf("the task is still not saved\n")
		} else {
			successf("saved\n")
		}
	case archiveCmd.FullCommand():
		t, err := c.Archive(ctx)
		if err != nil {
			return err
		}
		successf("archived %q\n", t.MainTask)
	case historyListCmd.FullCommand():
		tasks, err := c.History(ctx)
		if err != nil {
			return err
		}
		printHistory(tasks)
	case historyDeleteCmd.FullCommand():
		if err := c.DeleteFromHistory(ctx, *historyDeleteID); err != nil {
			return err
		}
		successf("deleted %s\n", *historyDeleteID)
	case profileShowCmd.FullCommand():
		p, err := c.Profile(ctx)
		if err != nil {
			return err
		}
		printProfile(p)
	case profileSetCmd.FullCommand():
		p, err := c.Profile(ctx)
		if err != nil {
			return err
		}
		if p == nil {
			p = &api.Profile{}
		}
		if *profileGranularity != "" {
			p.GranularityPreference = *profileGranularity
		}
		if *profileTriggers != "" {
			p.TriggersToAvoid = *profileTriggers
		}
		if *profileSupport != "" {
			p.SupportStyle = *profileSupport
		}
		p, err = c.UpdateProfile(ctx, p)
		if err != nil {
			return err
		}
		printProfile(p)
	case watchCmd.FullCommand():
		return c.Watch(ctx, *watchTypes, printEvent)
	}
	return nil
}

// withItem resolves ref against the current task and prints the result of fn.
func withItem(ctx context.Context, c *client.Client, ref string, fn func(stepID, subStepID string) (*api.TaskResult, error)) error {
	cur, err := c.Current(ctx)
	if err != nil {
		return err
	}
	stepID, subStepID, err := client.ResolveRef(cur.Task, ref)
	if err != nil {
		return err
	}
	res, err := fn(stepID, subStepID)
	if err != nil {
		return err
	}
	printResult(res)
	return nil
}
