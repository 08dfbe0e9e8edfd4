/*
Command selene runs operations of a configuration document

	selene [--lr LR] [--seed SEED] CONFIG
*/
package main

import (
	"fmt"
	"github.com/alexflint/go-arg"
	"go-ml.dev/pkg/selene/orchestrator"
	"os"
)

type args struct {
	Config string   `arg:"positional,required" help:"configuration document"`
	LR     *float64 `arg:"--lr" help:"learning rate for training, overrides lr of the document"`
	Seed   *int64   `arg:"--seed" help:"random seed, overrides random_seed of the document"`
	Quiet  bool     `arg:"-q" help:"do not print training progress"`
}

func (args) Description() string {
	return "trains and analyzes sequence-level models of genomic features"
}

func main() {
	var a args
	arg.MustParse(&a)
	opts := orchestrator.Options{LR: a.LR, Seed: a.Seed}
	if !a.Quiet {
		opts.Verbose = func(s string) { fmt.Println(s) }
	}
	if err := orchestrator.Execute(a.Config, opts); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
