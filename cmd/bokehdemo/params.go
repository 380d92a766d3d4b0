package main

import (
	"bokeh-gl/config"
	"bokeh-gl/dof"

	"github.com/rs/zerolog"
)

// paramSource converts the live config every frame. Invalid values fall back to the
// defaults and are logged once when they first appear.
type paramSource struct {
	failing bool
	log     zerolog.Logger
}

func (ps *paramSource) Params(c config.DoFConfig) dof.Params {
	params, err := c.ToParams()
	if err != nil {
		if !ps.failing {
			ps.log.Warn().Err(err).Msg("invalid dof parameters, using defaults")
		}
		params = dof.DefaultParams()
	}
	ps.failing = err != nil
	return params
}
