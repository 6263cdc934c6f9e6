package shim

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/containerd/errdefs"
	specs "github.com/opencontainers/runtime-spec/specs-go"

	"github.com/MarcinKonowalczyk/runyo/yo"
)

const configFilename = "config.json"

// TapeSizeEnv sets the number of cells of the program's tape.
const TapeSizeEnv = "YO_TAPE_SIZE"

// Config is the part of the bundle's OCI config the shim cares about.
type Config struct {
	Root       string
	Entrypoint string
	Path       []string
	Env        []string
	TapeSize   int
}

func ReadConfig(bundle string) (*Config, error) {
	filePath := filepath.Join(bundle, configFilename)

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file %s not found: %w", configFilename, errdefs.ErrNotFound)
		}
		return nil, err
	}

	var oci specs.Spec
	if err := json.Unmarshal(data, &oci); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", configFilename, err)
	}

	if oci.Root == nil || oci.Root.Path == "" {
		return nil, fmt.Errorf("root path not found in config file %s: %w", configFilename, errdefs.ErrInvalidArgument)
	}

	root := oci.Root.Path
	if !filepath.IsAbs(root) {
		root = filepath.Join(bundle, root)
	}

	if oci.Process == nil || len(oci.Process.Args) != 1 {
		n := 0
		if oci.Process != nil {
			n = len(oci.Process.Args)
		}
		return nil, fmt.Errorf("incorrect number of args in the CMD. Expected 1, got %d: %w", n, errdefs.ErrInvalidArgument)
	}

	arg0 := oci.Process.Args[0]

	if filepath.Ext(arg0) != ".yo" {
		return nil, fmt.Errorf("entry point (%s) is not a .yo file: %w", arg0, errdefs.ErrInvalidArgument)
	}

	script := filepath.Join(root, arg0)
	if _, err := os.Stat(script); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("script %s does not exist: %w", arg0, errdefs.ErrNotFound)
		}
		return nil, fmt.Errorf("checking script %s: %w", arg0, err)
	}

	config := &Config{
		Root:       root,
		Entrypoint: arg0,
		Path:       []string{},
		Env:        oci.Process.Env,
		TapeSize:   yo.DefaultTapeSize,
	}

	for _, env := range oci.Process.Env {
		switch {
		case strings.HasPrefix(env, "PATH="):
			config.Path = filepath.SplitList(strings.TrimPrefix(env, "PATH="))
		case strings.HasPrefix(env, TapeSizeEnv+"="):
			size, err := strconv.Atoi(strings.TrimPrefix(env, TapeSizeEnv+"="))
			if err != nil || size < 1 {
				return nil, fmt.Errorf("%s must be a positive integer, got %q: %w", TapeSizeEnv, env, errdefs.ErrInvalidArgument)
			}
			config.TapeSize = size
		}
	}

	return config, nil
}

func (c *Config) FullPath() string {
	return filepath.Join(c.Root, c.Entrypoint)
}
