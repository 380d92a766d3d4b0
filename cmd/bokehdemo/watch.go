package main

import (
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

var shaderExtensions = map[string]bool{
	".vert": true, ".geom": true, ".frag": true, ".comp": true,
}

// ShaderWatcher reports edits of GLSL files in a directory. Reloading has to happen on
// the thread owning the GL context, so the watcher only raises a flag that the render
// loop polls.
type ShaderWatcher struct {
	watcher *fsnotify.Watcher
	changed chan struct{}
	done    chan struct{}
	log     zerolog.Logger
}

func NewShaderWatcher(dir string, log zerolog.Logger) (*ShaderWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	sw := &ShaderWatcher{
		watcher: watcher,
		changed: make(chan struct{}, 1),
		done:    make(chan struct{}),
		log:     log,
	}
	go sw.watchLoop()
	return sw, nil
}

func (sw *ShaderWatcher) watchLoop() {
	for {
		select {
		case <-sw.done:
			return
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !shaderExtensions[strings.ToLower(filepath.Ext(event.Name))] {
				continue
			}
			sw.log.Debug().Str("file", event.Name).Msg("shader changed")
			// editors often write in several steps, one pending reload is enough
			select {
			case sw.changed <- struct{}{}:
			default:
			}
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			sw.log.Warn().Err(err).Msg("shader watcher error")
		}
	}
}

// Changed reports whether a shader was modified since the last call.
func (sw *ShaderWatcher) Changed() bool {
	select {
	case <-sw.changed:
		return true
	default:
		return false
	}
}

func (sw *ShaderWatcher) Close() error {
	close(sw.done)
	return sw.watcher.Close()
}
