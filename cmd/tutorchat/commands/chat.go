package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tutorchat-ai/tutorchat/internal/app"
	"github.com/tutorchat-ai/tutorchat/internal/event"
	"github.com/tutorchat-ai/tutorchat/internal/query"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Start an interactive chat session. Type a question to stream a
response, /help for commands, Ctrl-C to stop a streaming response.`,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	e, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer e.close()

	done := make(chan struct{}, 1)
	unsub := e.bus.SubscribeAll(func(ev event.Event) {
		renderEvent(ev, done)
	})
	defer unsub()

	// Ctrl-C stops the in-flight response instead of killing the process.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			e.app.Cancel()
		}
	}()

	fmt.Println("tutorchat - type /help for commands")
	fmt.Println(statusLine(e.app.Status()))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		if e.app.InWizard() {
			fmt.Print("... ")
		} else {
			fmt.Print("> ")
		}
		if !scanner.Scan() {
			break
		}

		resp, err := e.app.HandleInput(ctx, scanner.Text())
		if err != nil {
			fmt.Println(err)
			continue
		}
		if resp.Quit {
			break
		}
		if resp.Output != "" {
			fmt.Println(resp.Output)
		}
		if resp.Streaming {
			// Block until the turn reaches a terminal state so the next
			// prompt does not interleave with streamed output. The poll
			// covers a forced-idle cancel, which never emits a terminal
			// event.
			for e.app.Status().State != query.StateIdle {
				select {
				case <-done:
				case <-time.After(100 * time.Millisecond):
				}
			}
			select {
			case <-done:
			default:
			}
		}
	}
	return scanner.Err()
}

func renderEvent(ev event.Event, done chan<- struct{}) {
	switch data := ev.Data.(type) {
	case event.TurnDeltaData:
		fmt.Print(data.Text)
	case event.TurnToolUseData:
		fmt.Printf("\n[tool] %s\n", data.Tool)
	case event.TurnToolResultData:
		if data.Error != "" {
			fmt.Printf("[tool] %s failed: %s\n", data.Tool, data.Error)
		}
	case event.TurnCompletedData:
		fmt.Println()
		signalDone(done)
	case event.TurnFailedData:
		fmt.Printf("\nerror: %s\n", data.Error)
		signalDone(done)
	case event.TurnCancelledData:
		fmt.Println("\n[stopped]")
		signalDone(done)
	}
}

func signalDone(done chan<- struct{}) {
	select {
	case done <- struct{}{}:
	default:
	}
}

func statusLine(s app.StatusInfo) string {
	return fmt.Sprintf("tutor: %s | web search: %s | servers: %d",
		onOff(s.TutorMode), onOff(s.WebSearch), s.Servers)
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
