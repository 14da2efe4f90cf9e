// Package config resolves the classification service's runtime
// configuration: HTTP port, reference-table file locations, Redis
// connection info, and classification limits, each overridable by an
// environment variable over a documented default — the same env-with-
// fallback shape the teacher's HTTP server and collab server use for
// their own startup configuration.
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"ntcstep/internal/engine"
)

const (
	defaultPort          = 8080
	defaultRedisAddr     = ""
	defaultCloseEnoughRMSD = 0.5

	defaultAvgNeighboursCutoffDeg    = 25.0
	defaultNearestNeighbourCutoffDeg = 25.0
	defaultTotalDistanceCutoffDeg    = 60.0
	defaultPseudorotationCutoffDeg   = 30.0
	defaultMinClusterVotes           = 0.5
	defaultMinNeighbours             = 3
	defaultUsedNeighbours            = 11
)

// Config is the fully-resolved service configuration.
type Config struct {
	Port int

	ClustersPath     string
	GoldenStepsPath  string
	ConfalsPath      string
	PercentilesPath  string
	NuAnglesPath     string
	ExtBackbonePath  string // optional; empty disables RMSD-based cross-checks

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CloseEnoughRMSD float64
	Limits          engine.Limits
}

// Load resolves Config from the environment, applying defaults for
// anything unset. Required reference-table paths (clusters, golden
// steps, confals, percentiles, nu-angles) have no default and must be
// set explicitly; their absence is an error rather than a silent skip,
// since a context built without them cannot classify anything.
func Load() (Config, error) {
	c := Config{
		Port: envInt("NTCSTEP_PORT", defaultPort),

		RedisAddr:     os.Getenv("NTCSTEP_REDIS_ADDR"),
		RedisPassword: os.Getenv("NTCSTEP_REDIS_PASSWORD"),
		RedisDB:       envInt("NTCSTEP_REDIS_DB", 0),

		CloseEnoughRMSD: envFloat("NTCSTEP_CLOSE_ENOUGH_RMSD", defaultCloseEnoughRMSD),

		ExtBackbonePath: os.Getenv("NTCSTEP_EXT_BACKBONE_TABLE"),

		Limits: engine.Limits{
			AvgNeighboursCutoff:    degToRad(envFloat("NTCSTEP_LIMIT_AVG_NEIGHBOURS_DEG", defaultAvgNeighboursCutoffDeg)),
			NearestNeighbourCutoff: degToRad(envFloat("NTCSTEP_LIMIT_NEAREST_NEIGHBOUR_DEG", defaultNearestNeighbourCutoffDeg)),
			TotalDistanceCutoff:    degToRad(envFloat("NTCSTEP_LIMIT_TOTAL_DISTANCE_DEG", defaultTotalDistanceCutoffDeg)),
			PseudorotationCutoff:   degToRad(envFloat("NTCSTEP_LIMIT_PSEUDOROTATION_DEG", defaultPseudorotationCutoffDeg)),
			MinClusterVotes:        envFloat("NTCSTEP_LIMIT_MIN_CLUSTER_VOTES", defaultMinClusterVotes),
			MinNeighbours:          envInt("NTCSTEP_LIMIT_MIN_NEIGHBOURS", defaultMinNeighbours),
			UsedNeighbours:         envInt("NTCSTEP_LIMIT_USED_NEIGHBOURS", defaultUsedNeighbours),
		},
	}

	required := map[string]*string{
		"NTCSTEP_CLUSTERS_TABLE":     &c.ClustersPath,
		"NTCSTEP_GOLDEN_STEPS_TABLE": &c.GoldenStepsPath,
		"NTCSTEP_CONFALS_TABLE":      &c.ConfalsPath,
		"NTCSTEP_PERCENTILES_TABLE":  &c.PercentilesPath,
		"NTCSTEP_NU_ANGLES_TABLE":    &c.NuAnglesPath,
	}
	for env, dst := range required {
		v := os.Getenv(env)
		if v == "" {
			return Config{}, fmt.Errorf("config: %s environment variable not set", env)
		}
		*dst = v
	}

	return c, nil
}

func degToRad(deg float64) float64 { return deg * math.Pi / 180 }

func envInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloat(name string, def float64) float64 {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
