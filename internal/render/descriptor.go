package render

import (
	"path/filepath"
	"strconv"

	"bespoke/internal/services"
)

// Descriptor is everything the renderer needs to produce one image.
type Descriptor struct {
	// Index is the consumption index; it is already baked into Filename.
	Index    int
	Source   string
	Field    string
	Filename string
	// Dir is both the output path and the working directory of the calls.
	Dir  string
	Host string
	Port int
	// Convert requests a GIF copy of the still for animation assembly.
	Convert bool
}

// Path returns the absolute location of the rendered still.
func (d Descriptor) Path() string {
	return filepath.Join(d.Dir, d.Filename)
}

// GIFName returns the converted frame's filename.
func (d Descriptor) GIFName() string {
	return d.Filename + ".gif"
}

// Tools names the renderer and converter binaries.
type Tools struct {
	Keli    string
	Convert string
}

func (t Tools) artifactCommand(d Descriptor) services.Command {
	return services.Command{
		Binary: t.Keli,
		Args: []string{
			"src-artifact", d.Source, d.Field,
			"--filename", d.Filename,
			"--path", d.Dir,
			"--db-host", d.Host,
			"--db-port", strconv.Itoa(d.Port),
		},
		Dir: d.Dir,
	}
}

func (t Tools) convertCommand(d Descriptor) services.Command {
	return services.Command{
		Binary: t.Convert,
		Args:   []string{d.Filename, d.GIFName()},
		Dir:    d.Dir,
	}
}

// Commands returns the subprocess invocations for d in execution order.
func (t Tools) Commands(d Descriptor) []services.Command {
	cmds := []services.Command{t.artifactCommand(d)}
	if d.Convert {
		cmds = append(cmds, t.convertCommand(d))
	}
	return cmds
}
