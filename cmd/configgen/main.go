package main

import (
	"flag"
	"os"

	"github.com/danmuck/sliplink/internal/config"
	"github.com/danmuck/sliplink/internal/logging"
	"github.com/rs/zerolog/log"
)

const defaultPath = "cmd/sliplinkd/config.toml"

func main() {
	output := flag.String("output", defaultPath, "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	printCfg := flag.Bool("print", false, "print the effective config, defaults included")
	input := flag.String("input", defaultPath, "config path for -validate and -print")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	logging.ConfigureRuntime()

	if *validate || *printCfg {
		cfg, err := config.Load(*input)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid config")
		}
		if *printCfg {
			out, err := config.Render(cfg)
			if err != nil {
				log.Fatal().Err(err).Msg("render config")
			}
			_, _ = os.Stdout.Write(out)
			return
		}
		log.Info().Str("path", *input).Int("links", len(cfg.Links)).Msg("validated config")
		return
	}

	if err := config.WriteTemplate(*output, *force); err != nil {
		log.Fatal().Err(err).Msg("write template")
	}
	log.Info().Str("path", *output).Msg("wrote config template")
}
