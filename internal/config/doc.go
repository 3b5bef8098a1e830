// Package config loads rrn-masker settings with viper.
//
// Precedence, highest first: command-line flags bound by the CLI,
// environment variables (RRN_MASKER_<KEY>, dots as underscores, plus PORT for
// server.port), the config file rrn-masker.yaml, and DefaultConfig.
//
// Example rrn-masker.yaml:
//
//	log_level: info
//	pipeline:
//	  max_pixels: 50000000
//	  ocr:
//	    languages: [kor, eng]
//	    min_confidence: 0.3
//	  matcher:
//	    max_join_fragments: 2
//	  mask:
//	    style: mosaic
//	    padding: 6
//	server:
//	  port: 8000
package config
