package main

import (
	"fmt"
	"time"

	"bokeh-gl/config"
	"bokeh-gl/dof"

	im "github.com/inkyblackness/imgui-go/v4"
)

type panelActions struct {
	save   bool
	reload bool
}

type panelStats struct {
	// bokehCount lags a frame or more, countValid is false before the first readback
	bokehCount int
	countValid bool
	capacity   int
	timings    dof.Timings
	sceneTime  time.Duration
	saveError  error
}

var blurNames = []string{dof.BlurSeparable.String(), dof.BlurPoisson.String()}

// drawPanel edits cfg in place and reports the buttons pressed this frame.
func drawPanel(cfg *config.Config, stats panelStats) panelActions {
	var actions panelActions

	im.Begin("Depth of Field")

	im.PushID("focus")
	if im.CollapsingHeader("Focus") {
		im.SliderFloat("Near start", &cfg.DoF.NearStart, 0, 10)
		im.SliderFloat("Near end", &cfg.DoF.NearEnd, 0, 20)
		im.SliderFloat("Far start", &cfg.DoF.FarStart, 0, 50)
		im.SliderFloat("Far end", &cfg.DoF.FarEnd, 0, 100)
		im.SliderFloat("Max CoC", &cfg.DoF.MaxCoCRadius, 0, 32)
	}
	im.PopID()

	im.PushID("bokeh")
	if im.CollapsingHeader("Bokeh") {
		im.DragFloat("Luminance threshold", &cfg.DoF.LumThreshold)
		im.SliderFloat("CoC threshold", &cfg.DoF.CoCThreshold, 0, 32)
		im.SliderFloat("Max radius", &cfg.DoF.MaxBokehRadius, 0, 32)
		im.SliderFloat("Depth cutoff", &cfg.DoF.BokehDepthCutoff, 0, 10)
	}
	im.PopID()

	im.PushID("blur")
	if im.CollapsingHeader("Blur") {
		if im.BeginCombo("Strategy", cfg.DoF.Blur) {
			for _, name := range blurNames {
				if im.Selectable(name) {
					cfg.DoF.Blur = name
				}
			}
			im.EndCombo()
		}
		samples := int32(cfg.DoF.NSamples)
		if im.SliderInt("Samples", &samples, 1, dof.MaxSamples) {
			cfg.DoF.NSamples = int(samples)
		}
	}
	im.PopID()

	im.PushID("tonemap")
	if im.CollapsingHeader("Tonemap") {
		im.SliderFloat("Exposure", &cfg.Tonemap.Exposure, 0.01, 8)
		im.SliderFloat("Gamma", &cfg.Tonemap.Gamma, 1, 3)
	}
	im.PopID()

	im.Separator()
	if stats.countValid {
		im.Text(fmt.Sprintf("Bokeh: %d / %d", stats.bokehCount, stats.capacity))
	} else {
		im.Text(fmt.Sprintf("Bokeh: - / %d", stats.capacity))
	}
	if stats.countValid && stats.bokehCount > stats.capacity {
		im.Text(fmt.Sprintf("Dropped: %d", stats.bokehCount-stats.capacity))
	}
	for phase := dof.Phase(0); phase < dof.PhaseCount; phase++ {
		im.Text(fmt.Sprintf("%-10s %6.3f ms", phase, millis(stats.timings[phase])))
	}
	im.Text(fmt.Sprintf("%-10s %6.3f ms", "total", millis(stats.timings.Total())))
	im.Text(fmt.Sprintf("%-10s %6.1f ms", "scene", millis(stats.sceneTime)))

	im.Separator()
	actions.save = im.Button("Save config")
	im.SameLine()
	actions.reload = im.Button("Reload shaders")
	if stats.saveError != nil {
		im.Text(stats.saveError.Error())
	}

	im.End()
	return actions
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
