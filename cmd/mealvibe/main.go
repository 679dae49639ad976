// Command mealvibe runs the meal wizard in a terminal against a MealVibe
// server.
package main

import (
	"bufio"
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"MealVibe/internal/client"
	"MealVibe/internal/logging"
	"MealVibe/internal/models"
	"MealVibe/internal/wizard"
)

type args struct {
	Server   string        `arg:"env:MEALVIBE_SERVER" help:"MealVibe server URL." default:"http://localhost:8080"`
	Email    string        `arg:"env:MEALVIBE_EMAIL" help:"Sign in to start from your saved diet and allergies."`
	Password string        `arg:"env:MEALVIBE_PASSWORD" help:"Password for --email."`
	Photo    string        `arg:"--photo" help:"JPEG of your fridge to scan for ingredients."`
	ScanWait time.Duration `arg:"--scan-wait,env:SCAN_WAIT" help:"How long to wait for a pending scan before asking for ideas." default:"5s"`
	Debug    bool          `arg:"env:MEALVIBE_DEBUG" help:"Verbose logging."`
}

func (args) Description() string {
	return "MealVibe asks how you feel and suggests three meals to match."
}

func main() {
	_ = godotenv.Load()

	var a args
	arg.MustParse(&a)

	level := "warn"
	if a.Debug {
		level = "debug"
	}
	closer, _ := logging.Setup(logging.Options{Level: level, Pretty: true})
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	remote := client.New(a.Server)
	defer remote.Close()

	var profile *models.UserProfile
	if a.Email != "" {
		res, err := remote.Auth(ctx, models.AuthRequest{Action: "signin", Email: a.Email, Password: a.Password})
		if err != nil {
			log.Fatal().Err(err).Msg("sign in failed")
		}
		profile = &res.UserProfile
	}

	session := wizard.NewSession(remote,
		wizard.WithCamera(a.Photo != ""),
		wizard.WithScanner(remote),
		wizard.WithProfile(profile),
		wizard.WithScanWait(a.ScanWait),
	)

	t := &terminal{
		s:     session,
		in:    bufio.NewScanner(os.Stdin),
		out:   os.Stdout,
		photo: a.Photo,
	}
	if err := t.run(ctx); err != nil {
		log.Fatal().Err(err).Msg("wizard stopped")
	}
}
