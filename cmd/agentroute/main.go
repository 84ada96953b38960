// Command agentroute runs a YAML-declared multi-agent system. With a request
// argument it processes the request once and exits; without one it enters an
// interactive line-reader mode with the commands exit, reset and continue.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/hupe1980/agentroute"
	"github.com/hupe1980/agentroute/config"
	"github.com/hupe1980/agentroute/gateway"
	"github.com/hupe1980/agentroute/logging"
)

const defaultConfigPath = "agents.yaml"

func main() {
	// Environment first; a missing .env is not an error.
	_ = godotenv.Load()

	configPath, request, debug := parseArgs(os.Args[1:])

	logger := logging.Logger(logging.NoOpLogger{})
	if debug {
		logger = logging.NewLogger(&logging.LoggerConfig{
			Level:  logging.LogLevelDebug,
			Format: "text",
			Output: os.Stdout,
		})
	}

	ctx := context.Background()

	system, err := agentroute.New(ctx, configPath, func(o *agentroute.Options) {
		o.Logger = logger
	})
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			fmt.Printf("Configuration file not found: %s\n", configPath)
			fmt.Println("\nCreate an agents.yaml file to define your agents.")
			os.Exit(1)
		}
		fmt.Printf("Failed to initialize: %s\n", err)
		os.Exit(1)
	}
	defer system.Close()

	fmt.Printf("Initialized %d agents\n", system.AgentCount())

	if request != "" {
		fmt.Printf("\nProcessing: %s\n", request)
		printResponses(system.ProcessRequest(ctx, request), false)
		return
	}

	runInteractive(ctx, system)
}

// parseArgs implements the minimal argument contract: an optional --debug
// flag, an optional leading path ending in a config extension, and the
// remaining arguments joined as the request text.
func parseArgs(args []string) (configPath, request string, debug bool) {
	configPath = defaultConfigPath

	filtered := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--debug" {
			debug = true
			continue
		}
		filtered = append(filtered, a)
	}

	if len(filtered) == 0 {
		return configPath, "", debug
	}
	if strings.HasSuffix(filtered[0], ".yaml") || strings.HasSuffix(filtered[0], ".yml") {
		configPath = filtered[0]
		request = strings.Join(filtered[1:], " ")
		return configPath, request, debug
	}
	return configPath, strings.Join(filtered, " "), debug
}

func runInteractive(ctx context.Context, system *agentroute.System) {
	fmt.Println("\nAgent System (Interactive Mode)")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("Commands: 'exit' to quit, 'reset' to clear conversation")
	fmt.Println(strings.Repeat("=", 50))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nYou: ")
		if !scanner.Scan() {
			fmt.Println("\nGoodbye!")
			return
		}
		input := strings.TrimSpace(scanner.Text())

		switch {
		case input == "":
			continue
		case strings.EqualFold(input, "exit"):
			fmt.Println("\nGoodbye!")
			return
		case strings.EqualFold(input, "reset"):
			system.Reset()
			fmt.Println("Conversation reset")
			continue
		case strings.EqualFold(input, "continue"):
			if _, pending := system.Session().PendingAuth(); !pending {
				fmt.Println("Nothing to continue.")
				continue
			}
			system.Session().ClearPendingAuth()
			fmt.Println("Continuing after authorization...")
			last, ok := system.Session().LastUserInput()
			if !ok {
				continue
			}
			fmt.Printf("Retrying: %s\n", last)
			printResponses(system.ProcessRequest(ctx, last), true)
			continue
		}

		fmt.Println("\nProcessing...")
		printResponses(system.ProcessRequest(ctx, input), true)
	}
}

// printResponses renders collected responses. Authorization-required
// responses win over everything else and only the first one is shown: a bare
// URL becomes a click-to-authorize instruction, anything else plain denial
// text. The interactive hint tells the operator how to resume.
func printResponses(responses []string, interactive bool) {
	if len(responses) == 0 {
		fmt.Println("\nNo response generated.")
		return
	}

	var authMessages, otherMessages []string
	for _, r := range responses {
		if strings.Contains(r, gateway.AuthRequiredMarker) {
			authMessages = append(authMessages, r)
		} else {
			otherMessages = append(otherMessages, r)
		}
	}

	if len(authMessages) == 0 {
		fmt.Println("\nResponse:")
		for _, r := range otherMessages {
			fmt.Printf("\n%s\n", r)
		}
		return
	}

	_, detail, _ := strings.Cut(authMessages[0], gateway.AuthRequiredMarker)
	detail = strings.TrimSpace(detail)
	if strings.HasPrefix(detail, "http") {
		fmt.Printf("\nAuthorization required. Please open this link to authorize:\n%s\n", detail)
		if interactive {
			fmt.Println("\nOnce authorized, type 'continue' to proceed.")
		}
	} else {
		fmt.Printf("\nAuthorization required: %s\n", detail)
		if interactive {
			fmt.Println("\nPlease authorize and type 'continue' to proceed.")
		}
	}
}
