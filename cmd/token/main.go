// Command token prints an operator token for the management API, or a fresh
// random SECRET_KEY.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"

	config "github.com/maheshrc27/dmflow/configs"
	"github.com/maheshrc27/dmflow/pkg/utils"
)

const secretKeyBytes = 24

type Options struct {
	Operator  string        `long:"operator" short:"o" default:"admin" description:"Name stored in the token"`
	TTL       time.Duration `long:"ttl" default:"720h" description:"Token lifetime"`
	NewSecret bool          `long:"new-secret" description:"Print a random SECRET_KEY instead of a token"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if opts.NewSecret {
		key, err := utils.GenerateRandomKey(secretKeyBytes)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(key)
		return
	}

	_ = godotenv.Load()
	cfg := config.LoadConfig()
	if cfg.SecretKey == "" {
		fmt.Fprintf(os.Stderr, "Error: SECRET_KEY environment variable is required but not set\n")
		os.Exit(1)
	}

	token, err := utils.GenerateToken(cfg.SecretKey, opts.Operator, opts.TTL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
