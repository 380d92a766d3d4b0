package main

import (
	"bytes"
	"strings"
	"testing"

	"bokeh-gl/config"
	"bokeh-gl/dof"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParamSourceWarnsOnce(t *testing.T) {
	var out bytes.Buffer
	ps := paramSource{log: zerolog.New(&out)}

	bad := config.FromParams(dof.DefaultParams())
	bad.Blur = "box"
	for i := 0; i < 3; i++ {
		assert.Equal(t, dof.DefaultParams(), ps.Params(bad))
	}
	assert.Equal(t, 1, strings.Count(out.String(), "invalid dof parameters"))

	good := config.FromParams(dof.DefaultParams())
	good.Blur = dof.BlurPoisson.String()
	assert.Equal(t, dof.BlurPoisson, ps.Params(good).Blur)

	// a new failure after recovering is reported again
	ps.Params(bad)
	assert.Equal(t, 2, strings.Count(out.String(), "invalid dof parameters"))
}
