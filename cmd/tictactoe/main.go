// Command tictactoe plays the solo game in a terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"time"

	"github.com/chzyer/readline"
	"github.com/muesli/termenv"

	"github.com/jaminalder/solo-tic-tac-toe/internal/opponent"
	"github.com/jaminalder/solo-tic-tac-toe/internal/term"
)

func main() {
	delay := flag.Duration("delay", 500*time.Millisecond, "pause before the computer moves")
	seed := flag.Uint64("seed", 0, "seed for the computer's random moves (0 picks one)")
	flag.Parse()

	var src rand.Source
	if *seed != 0 {
		src = rand.NewPCG(*seed, *seed)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "ttt> ",
		HistoryFile:     os.ExpandEnv("$HOME/.tictactoe_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer rl.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r := term.NewRenderer(rl.Stdout(), termenv.EnvColorProfile())
	if err := term.Run(ctx, rl, term.NewSession(opponent.New(src), *delay), r); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
