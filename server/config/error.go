// Copyright 2022 CeresDB Project Authors. Licensed under Apache-2.0.

package config

import "github.com/unknowntpo/scylladb/pkg/coderr"

var (
	ErrInvalidCommandArgs = coderr.NewCodeErrorWrapper(coderr.InvalidParams, "invalid command arguments")
	ErrParseToml          = coderr.NewCodeErrorWrapper(coderr.Internal, "fail to parse config from toml file")
	ErrParseEnv           = coderr.NewCodeErrorWrapper(coderr.Internal, "fail to parse config from environment variable")
)
