// Package config loads, validates and templates the user-facing JSON
// configuration of spec §6. JSON is the format spec.md itself specifies,
// so encoding/json is used directly rather than reaching for a config
// library (see DESIGN.md).
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// ErrConfigInvalid wraps every validation failure of this package (spec
// §7's ConfigInvalid error kind).
type ErrConfigInvalid struct {
	Reason string
}

func (e ErrConfigInvalid) Error() string { return "config: invalid: " + e.Reason }

func invalid(format string, args ...any) error {
	return ErrConfigInvalid{Reason: fmt.Sprintf(format, args...)}
}

// NodeWeight is the uniform per-type resource profile of spec §6
// (sat_weight / ogs_weight).
type NodeWeight struct {
	MemoryQubits uint32  `json:"memory_qubits"`
	Detectors    uint32  `json:"detectors"`
	Transmitters uint32  `json:"transmitters"`
	Capacity     float64 `json:"capacity"`
	DecayRate    float64 `json:"decay_rate"`
	SwapProb     float64 `json:"swap_prob"`
	SwapDuration float64 `json:"swap_duration"`
	CorrDuration float64 `json:"corr_duration"`
}

// Fidelities is spec §6's ConfGridStatic.fidelities / the chain
// constructor's equivalent table.
type Fidelities struct {
	FO  float64 `json:"f_o"`
	FG  float64 `json:"f_g"`
	FOO float64 `json:"f_oo"`
	FOG float64 `json:"f_og"`
	FGG float64 `json:"f_gg"`
}

// GridParams is spec §4.1/§6's grid constructor parameters.
type GridParams struct {
	OrbitToOrbitDistance  float64 `json:"orbit_to_orbit_distance"`
	GroundToOrbitDistance float64 `json:"ground_to_orbit_distance"`
	NumOrbits             int     `json:"num_orbits"`
	OrbitLength           int     `json:"orbit_length"`
}

// ConfGridStatic is spec §6's grid physical-topology configuration.
type ConfGridStatic struct {
	GridParams GridParams `json:"grid_params"`
	SatWeight  NodeWeight `json:"sat_weight"`
	OgsWeight  NodeWeight `json:"ogs_weight"`
	Fidelities Fidelities `json:"fidelities"`
}

// ConfChainStatic is the chain physical-topology configuration supplement
// documented in SPEC_FULL.md (grounded on original_source/'s chain
// constructor, absent from spec §4.1's prose but named in spec §6's
// config union).
type ConfChainStatic struct {
	NumNodes     int        `json:"num_nodes"`
	EdgeDistance float64    `json:"edge_distance"`
	SatWeight    NodeWeight `json:"sat_weight"`
	OgsWeight    NodeWeight `json:"ogs_weight"`
	Fidelities   Fidelities `json:"fidelities"`
}

// PhysicalTopologyConfig is the spec §6 ConfGridStatic|ConfChainStatic
// union, encoded the idiomatic Go way: exactly one of Grid/Chain is set.
type PhysicalTopologyConfig struct {
	Grid  *ConfGridStatic  `json:"grid,omitempty"`
	Chain *ConfChainStatic `json:"chain,omitempty"`
}

// LogicalTopologyConfig is spec §6's logical_topology block; RandomGreedy
// is the only policy this repo implements (spec §4.2).
type LogicalTopologyConfig struct {
	PhysicalToLogicalPolicy string `json:"physical_to_logical_policy"`
}

// SourceDestPairs selects which OGS pairs get applications (spec §6):
// either N randomly chosen pairs, or every ordered pair (AllToAll).
type SourceDestPairs struct {
	Random   *int `json:"random,omitempty"`
	AllToAll bool `json:"all_to_all,omitempty"`
}

// ConfPing is spec §6's Pinger/Ponger application configuration.
type ConfPing struct {
	SourceDestPairs SourceDestPairs `json:"source_dest_pairs"`
	MaxRequests     uint64          `json:"max_requests"`
}

// ConfClientServer is spec §6's Client/Server application configuration.
type ConfClientServer struct {
	SourceDestPairs       SourceDestPairs `json:"source_dest_pairs"`
	OperationRate         float64         `json:"operation_rate"`
	OperationAvgDurClient float64         `json:"operation_avg_dur_client"`
	OperationAvgDurServer float64         `json:"operation_avg_dur_server"`
}

// ApplicationsConfig is the spec §6 ConfPing|ConfClientServer union.
type ApplicationsConfig struct {
	Ping         *ConfPing         `json:"ping,omitempty"`
	ClientServer *ConfClientServer `json:"client_server,omitempty"`
}

// Config is the top-level user configuration of spec §6.
type Config struct {
	Duration         float64                `json:"duration"`
	WarmupPeriod     float64                `json:"warmup_period"`
	SeriesIgnore     []string               `json:"series_ignore"`
	PhysicalTopology PhysicalTopologyConfig `json:"physical_topology"`
	LogicalTopology  LogicalTopologyConfig  `json:"logical_topology"`
	Applications     ApplicationsConfig     `json:"applications"`
}

// Load reads and validates the JSON configuration at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, invalid("parsing %s: %v", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WriteTemplate writes a runnable default configuration to path (CLI
// --template, spec §6).
func WriteTemplate(path string) error {
	n := 4
	tmpl := Config{
		Duration:     10,
		WarmupPeriod: 1,
		SeriesIgnore: []string{},
		PhysicalTopology: PhysicalTopologyConfig{
			Grid: &ConfGridStatic{
				GridParams: GridParams{
					OrbitToOrbitDistance:  5_000_000,
					GroundToOrbitDistance: 1_000_000,
					NumOrbits:             2,
					OrbitLength:           2,
				},
				SatWeight: NodeWeight{MemoryQubits: 8, Detectors: 8, Transmitters: 8, Capacity: 1000, DecayRate: 0.1, SwapProb: 0.8},
				OgsWeight: NodeWeight{MemoryQubits: 8, Detectors: 8, Transmitters: 2, Capacity: 500},
				Fidelities: Fidelities{FO: 0.95, FG: 0.9, FOO: 0.85, FOG: 0.8, FGG: 0.75},
			},
		},
		LogicalTopology: LogicalTopologyConfig{PhysicalToLogicalPolicy: "RandomGreedy"},
		Applications: ApplicationsConfig{
			Ping: &ConfPing{
				SourceDestPairs: SourceDestPairs{Random: &n},
				MaxRequests:     100,
			},
		},
	}
	raw, err := json.MarshalIndent(tmpl, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal template: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Validate checks every numeric/structural invariant spec §6/§7 assign
// to the ConfigInvalid error kind.
func (c *Config) Validate() error {
	if c.Duration <= 0 {
		return invalid("duration must be > 0, got %f", c.Duration)
	}
	if c.WarmupPeriod < 0 {
		return invalid("warmup_period must be >= 0, got %f", c.WarmupPeriod)
	}
	if c.WarmupPeriod >= c.Duration {
		return invalid("warmup_period (%f) must be less than duration (%f)", c.WarmupPeriod, c.Duration)
	}

	if err := c.PhysicalTopology.validate(); err != nil {
		return err
	}
	if c.LogicalTopology.PhysicalToLogicalPolicy != "RandomGreedy" {
		return invalid("unsupported physical_to_logical_policy %q", c.LogicalTopology.PhysicalToLogicalPolicy)
	}
	if err := c.Applications.validate(); err != nil {
		return err
	}
	return nil
}

func (p PhysicalTopologyConfig) validate() error {
	switch {
	case p.Grid != nil && p.Chain != nil:
		return invalid("physical_topology must set exactly one of grid/chain")
	case p.Grid != nil:
		return p.Grid.validate()
	case p.Chain != nil:
		return p.Chain.validate()
	default:
		return invalid("physical_topology must set one of grid/chain")
	}
}

func (g ConfGridStatic) validate() error {
	if g.GridParams.NumOrbits <= 0 {
		return invalid("grid_params.num_orbits must be > 0, got %d", g.GridParams.NumOrbits)
	}
	if g.GridParams.OrbitLength <= 0 {
		return invalid("grid_params.orbit_length must be > 0, got %d", g.GridParams.OrbitLength)
	}
	if g.GridParams.OrbitToOrbitDistance < 0 || g.GridParams.GroundToOrbitDistance < 0 {
		return invalid("grid_params distances must be >= 0")
	}
	return g.Fidelities.validate()
}

func (c ConfChainStatic) validate() error {
	if c.NumNodes < 2 {
		return invalid("chain num_nodes must be >= 2, got %d", c.NumNodes)
	}
	if c.EdgeDistance < 0 {
		return invalid("chain edge_distance must be >= 0")
	}
	return c.Fidelities.validate()
}

func (f Fidelities) validate() error {
	for name, v := range map[string]float64{"f_o": f.FO, "f_g": f.FG, "f_oo": f.FOO, "f_og": f.FOG, "f_gg": f.FGG} {
		if v < 0 || v > 1 {
			return invalid("fidelity %s=%f outside [0,1]", name, v)
		}
	}
	return nil
}

func (a ApplicationsConfig) validate() error {
	switch {
	case a.Ping != nil && a.ClientServer != nil:
		return invalid("applications must set exactly one of ping/client_server")
	case a.Ping != nil:
		return a.Ping.validate()
	case a.ClientServer != nil:
		return a.ClientServer.validate()
	default:
		return invalid("applications must set one of ping/client_server")
	}
}

func (p ConfPing) validate() error {
	if p.MaxRequests == 0 {
		return invalid("ping.max_requests must be > 0")
	}
	return p.SourceDestPairs.validate()
}

func (c ConfClientServer) validate() error {
	if c.OperationRate <= 0 {
		return invalid("client_server.operation_rate must be > 0")
	}
	if c.OperationAvgDurClient <= 0 {
		return invalid("client_server.operation_avg_dur_client must be > 0")
	}
	if c.OperationAvgDurServer <= 0 {
		return invalid("client_server.operation_avg_dur_server must be > 0")
	}
	return c.SourceDestPairs.validate()
}

func (s SourceDestPairs) validate() error {
	if s.Random != nil && s.AllToAll {
		return invalid("source_dest_pairs must set exactly one of random/all_to_all")
	}
	if s.Random == nil && !s.AllToAll {
		return invalid("source_dest_pairs must set one of random/all_to_all")
	}
	if s.Random != nil && *s.Random <= 0 {
		return invalid("source_dest_pairs.random must be > 0, got %d", *s.Random)
	}
	return nil
}
