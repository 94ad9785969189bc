// voicectl is the operator tool for the voice line: inspect the
// account's phone numbers, point a number's voice webhook at a
// deployment, and place a test call through the dialogue.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vidyutseva/voice-line/internal/config"
	"github.com/vidyutseva/voice-line/internal/twilio"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	client := twilio.NewClient(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var cmdErr error
	switch os.Args[1] {
	case "numbers":
		cmdErr = runNumbers(ctx, client)
	case "set-webhook":
		cmdErr = runSetWebhook(ctx, client, cfg, os.Args[2:])
	case "test-call":
		cmdErr = runTestCall(ctx, client, cfg, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if cmdErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", cmdErr)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: voicectl <command> [flags]

Commands:
  numbers               List the account's incoming phone numbers
  set-webhook           Point a number's voice webhook at this service
  test-call             Place an outbound call through the voice dialogue

Run "voicectl <command> -h" for command flags.`)
}

func runNumbers(ctx context.Context, client *twilio.Client) error {
	numbers, err := client.ListPhoneNumbers(ctx)
	if err != nil {
		return err
	}
	if len(numbers) == 0 {
		fmt.Println("No phone numbers on this account.")
		return nil
	}
	for _, n := range numbers {
		fmt.Printf("%s  %-20s voice_url=%s\n", n.PhoneNumber, n.FriendlyName, n.VoiceURL)
	}
	return nil
}

func runSetWebhook(ctx context.Context, client *twilio.Client, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("set-webhook", flag.ExitOnError)
	number := fs.String("number", cfg.TwilioPhoneNumber, "phone number to update (defaults to TWILIO_PHONE_NUMBER)")
	baseURL := fs.String("url", cfg.PublicURL, "public base URL of the deployment (defaults to PUBLIC_URL)")
	fs.Parse(args)

	if *number == "" {
		return fmt.Errorf("no phone number: pass -number or set TWILIO_PHONE_NUMBER")
	}
	if *baseURL == "" {
		return fmt.Errorf("no deployment URL: pass -url or set PUBLIC_URL")
	}

	webhookURL := webhookFor(*baseURL)
	updated, err := client.UpdateVoiceURL(ctx, *number, webhookURL)
	if err != nil {
		return err
	}
	fmt.Printf("Webhook for %s updated to %s\n", updated.PhoneNumber, updated.VoiceURL)
	return nil
}

func runTestCall(ctx context.Context, client *twilio.Client, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("test-call", flag.ExitOnError)
	to := fs.String("to", "", "number to call (required)")
	from := fs.String("from", cfg.TwilioPhoneNumber, "caller ID (defaults to TWILIO_PHONE_NUMBER)")
	baseURL := fs.String("url", cfg.PublicURL, "public base URL of the deployment (defaults to PUBLIC_URL)")
	fs.Parse(args)

	if *to == "" {
		return fmt.Errorf("no destination: pass -to")
	}
	if *from == "" {
		return fmt.Errorf("no caller ID: pass -from or set TWILIO_PHONE_NUMBER")
	}
	if *baseURL == "" {
		return fmt.Errorf("no deployment URL: pass -url or set PUBLIC_URL")
	}

	call, err := client.MakeCall(ctx, *to, *from, webhookFor(*baseURL))
	if err != nil {
		return err
	}
	fmt.Printf("Call initiated: sid=%s status=%s\n", call.SID, call.Status)
	fmt.Println("Answer, pick a language with 1/2/3, then speak after the beep.")
	return nil
}

// webhookFor builds the incoming-call webhook URL from a deployment base
// URL, tolerating a missing scheme.
func webhookFor(baseURL string) string {
	if !strings.HasPrefix(baseURL, "http") {
		baseURL = "https://" + baseURL
	}
	return strings.TrimSuffix(baseURL, "/") + "/voice/incoming"
}
