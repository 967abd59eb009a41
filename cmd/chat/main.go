package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/friendlychat-server/internal/client"
	logpkg "github.com/vovakirdan/friendlychat-server/internal/log"
)

var version = "dev"

type options struct {
	server      string
	username    string
	password    string
	displayName string
	register    bool
	deviceToken string
	logLevel    string
}

func main() {
	var opts options

	c := &cobra.Command{
		Use:     "chat",
		Short:   "Terminal FriendlyChat client",
		Long:    "Signs in, prints the live message feed and sends every input line as a message.\nUse \"/image PATH\" to share an image.",
		Version: version,
		Args:    cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(opts)
		},
	}
	c.Flags().StringVarP(&opts.server, "server", "s", "http://localhost:8080", "server base URL")
	c.Flags().StringVarP(&opts.username, "user", "u", "", "username (signs in as a guest when empty)")
	c.Flags().StringVarP(&opts.password, "password", "p", "", "password")
	c.Flags().StringVar(&opts.displayName, "display-name", "", "display name used with --register")
	c.Flags().BoolVar(&opts.register, "register", false, "create the account before signing in")
	c.Flags().StringVar(&opts.deviceToken, "device-token", "", "push token to register for this user")
	c.Flags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	if err := c.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(opts options) error {
	logger := logpkg.NewWithWriter(os.Stderr, opts.logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cl := client.New(opts.server, 30*time.Second)

	var err error
	switch {
	case opts.username == "":
		err = cl.Guest(ctx)
	case opts.register:
		err = cl.Register(ctx, opts.username, opts.password, opts.displayName)
	default:
		err = cl.Login(ctx, opts.username, opts.password)
	}
	if err != nil {
		return err
	}

	if opts.deviceToken != "" {
		if err := cl.RegisterDevice(ctx, opts.deviceToken); err != nil {
			logger.Warn().Err(err).Msg("unable to register device token")
		}
	}

	name := cl.User().DisplayName
	if name == "" {
		name = "Anonymous"
	}
	fmt.Printf("Connected to %s as %s\n", opts.server, name)
	fmt.Println("Type messages and press Enter to send, /image PATH to share an image. Ctrl+C to exit.")

	return client.NewChat(cl, os.Stdout, logger).Run(ctx, os.Stdin)
}
