package ocat

// Track identifies one of the four technical signoff tracks. USINT is not a
// track here: it is appended unconditionally by the signoff derivation.
type Track string

const (
	TrackGeneral Track = "general"
	TrackACIS    Track = "acis"
	TrackACISSI  Track = "acis_si"
	TrackHRCSI   Track = "hrc_si"
)

// Category groups parameters by the sub-table they originate from.
type Category string

const (
	CategoryGeneral    Category = "general"
	CategoryDither     Category = "dither"
	CategoryTimeRank   Category = "time_rank"
	CategoryRollRank   Category = "roll_rank"
	CategoryWindowRank Category = "window_rank"
	CategoryACIS       Category = "acis"
	CategoryHRC        Category = "hrc"
	CategoryTOO        Category = "too"
)

// ParameterSpec is one catalog entry: a named, versioned description of a
// modifiable or informational field and the signoff tracks that govern it.
type ParameterSpec struct {
	Name       string
	Category   Category
	Modifiable bool
	DataType   string
	Tracks     []Track
}

// FlagGroup is a set of parameters whose relevance is controlled by a single
// flag with domain {N, P, Y}. Rank-ordered groups additionally name the key
// the source record lists their per-rank values under.
type FlagGroup struct {
	Flag    string
	RankKey string
	Members []string
}

// Catalog is the explicit parameter table built once at startup and passed by
// reference into the components that need it. It replaces ad-hoc string-list
// membership checks with a lookup.
type Catalog struct {
	specs  map[string]ParameterSpec
	order  []string
	groups []FlagGroup
}

func general(name, dataType string, modifiable bool) ParameterSpec {
	return ParameterSpec{Name: name, Category: CategoryGeneral, Modifiable: modifiable, DataType: dataType, Tracks: []Track{TrackGeneral}}
}

func acis(name, dataType string) ParameterSpec {
	return ParameterSpec{Name: name, Category: CategoryACIS, Modifiable: true, DataType: dataType, Tracks: []Track{TrackACIS}}
}

// NewCatalog builds the full parameter catalog. Member parameters of the
// dither, time, roll, and ACIS-window groups are included here so that
// Original/Request persistence can resolve them by name; their group
// handling lives in the change-set builder.
func NewCatalog() *Catalog {
	specs := []ParameterSpec{
		general("targname", "string", true),
		general("ra", "float", true),
		general("dec", "float", true),
		general("object", "string", true),
		general("obj_flag", "string", true),
		general("photometry_flag", "string", true),
		general("vmagnitude", "float", true),
		general("est_cnt_rate", "float", true),
		general("forder_cnt_rate", "float", true),
		general("total_fld_cnt_rate", "float", true),
		general("y_det_offset", "float", true),
		general("z_det_offset", "float", true),
		general("trans_offset", "float", true),
		general("focus_offset", "float", true),
		general("raster_scan", "string", true),
		general("approved_exposure_time", "float", true),
		general("rem_exp_time", "float", true),
		general("extended_src", "string", true),
		general("uninterrupt", "string", true),
		general("multitelescope", "string", true),
		general("observatories", "string", true),
		general("multitelescope_interval", "float", true),
		general("pointing_constraint", "string", true),
		general("constr_in_remarks", "string", true),
		general("pre_id", "int", true),
		general("pre_min_lead", "float", true),
		general("pre_max_lead", "float", true),
		general("seg_max_num", "int", true),
		general("group_id", "string", true),
		general("monitor_flag", "string", true),
		general("phase_constraint_flag", "string", true),
		general("phase_period", "float", true),
		general("phase_epoch", "float", true),
		general("phase_start", "float", true),
		general("phase_end", "float", true),
		general("phase_start_margin", "float", true),
		general("phase_end_margin", "float", true),
		general("instrument", "string", true),
		general("grating", "string", true),
		general("aca_mode", "string", true),
		general("dither_flag", "string", true),
		general("window_flag", "string", true),
		general("roll_flag", "string", true),
		general("comments", "string", true),
		general("remarks", "string", true),
		general("obsid", "int", false),
		general("seq_nbr", "int", false),
		general("targid", "int", false),
		general("status", "string", false),
		general("obs_ao_str", "string", false),
		general("soe_st_sched_date", "datetime", false),
		general("lts_lt_plan", "datetime", false),
		general("soe_roll", "float", false),
		general("planned_roll", "string", false),
		general("data_rights", "string", false),
		general("tooid", "int", false),
		general("acisid", "int", false),
		general("hrcid", "int", false),
		general("ocat_propid", "int", false),
		general("proposal_number", "string", false),
		general("proposal_title", "string", false),
		general("proposal_joint", "string", false),
		general("pi_name", "string", false),
		general("observer", "string", false),
		general("obs_type", "string", false),
		general("description", "string", false),
		general("mpcat_star_fidlight_file", "string", false),

		// Dither group members (gated on dither_flag).
		general("y_amp", "float", true),
		general("y_freq", "float", true),
		general("y_phase", "float", true),
		general("z_amp", "float", true),
		general("z_freq", "float", true),
		general("z_phase", "float", true),

		// Time-window ranks (gated on window_flag).
		{Name: "window_constraint", Category: CategoryTimeRank, Modifiable: true, DataType: "list", Tracks: []Track{TrackGeneral}},
		{Name: "tstart", Category: CategoryTimeRank, Modifiable: true, DataType: "list", Tracks: []Track{TrackGeneral}},
		{Name: "tstop", Category: CategoryTimeRank, Modifiable: true, DataType: "list", Tracks: []Track{TrackGeneral}},

		// Roll ranks (gated on roll_flag).
		{Name: "roll_constraint", Category: CategoryRollRank, Modifiable: true, DataType: "list", Tracks: []Track{TrackGeneral}},
		{Name: "roll_180", Category: CategoryRollRank, Modifiable: true, DataType: "list", Tracks: []Track{TrackGeneral}},
		{Name: "roll", Category: CategoryRollRank, Modifiable: true, DataType: "list", Tracks: []Track{TrackGeneral}},
		{Name: "roll_tolerance", Category: CategoryRollRank, Modifiable: true, DataType: "list", Tracks: []Track{TrackGeneral}},

		// TOO/DDT parameters.
		{Name: "too_type", Category: CategoryTOO, Modifiable: true, DataType: "string", Tracks: []Track{TrackGeneral}},
		{Name: "too_trig", Category: CategoryTOO, Modifiable: true, DataType: "string", Tracks: []Track{TrackGeneral}},
		{Name: "too_start", Category: CategoryTOO, Modifiable: true, DataType: "float", Tracks: []Track{TrackGeneral}},
		{Name: "too_stop", Category: CategoryTOO, Modifiable: true, DataType: "float", Tracks: []Track{TrackGeneral}},
		{Name: "too_followup", Category: CategoryTOO, Modifiable: true, DataType: "string", Tracks: []Track{TrackGeneral}},
		{Name: "too_remarks", Category: CategoryTOO, Modifiable: true, DataType: "string", Tracks: []Track{TrackGeneral}},

		// ACIS instrument parameters.
		acis("exp_mode", "string"),
		acis("bep_pack", "string"),
		acis("frame_time", "float"),
		acis("most_efficient", "string"),
		acis("ccdi0_on", "string"),
		acis("ccdi1_on", "string"),
		acis("ccdi2_on", "string"),
		acis("ccdi3_on", "string"),
		acis("ccds0_on", "string"),
		acis("ccds1_on", "string"),
		acis("ccds2_on", "string"),
		acis("ccds3_on", "string"),
		acis("ccds4_on", "string"),
		acis("ccds5_on", "string"),
		acis("subarray", "string"),
		acis("subarray_start_row", "int"),
		acis("subarray_row_count", "int"),
		acis("duty_cycle", "float"),
		acis("secondary_exp_count", "int"),
		acis("primary_exp_time", "float"),
		acis("onchip_sum", "string"),
		acis("onchip_row_count", "int"),
		acis("onchip_column_count", "int"),
		acis("eventfilter", "string"),
		acis("eventfilter_lower", "float"),
		acis("eventfilter_higher", "float"),
		acis("dropped_chip_count", "int"),
		acis("multiple_spectral_lines", "string"),
		acis("spectra_max_count", "float"),
		{Name: "spwindow_flag", Category: CategoryACIS, Modifiable: true, DataType: "string", Tracks: []Track{TrackACIS}},

		// ACIS spatial-window ranks (gated on spwindow_flag).
		{Name: "chip", Category: CategoryWindowRank, Modifiable: true, DataType: "list", Tracks: []Track{TrackACIS}},
		{Name: "start_row", Category: CategoryWindowRank, Modifiable: true, DataType: "list", Tracks: []Track{TrackACIS}},
		{Name: "start_column", Category: CategoryWindowRank, Modifiable: true, DataType: "list", Tracks: []Track{TrackACIS}},
		{Name: "width", Category: CategoryWindowRank, Modifiable: true, DataType: "list", Tracks: []Track{TrackACIS}},
		{Name: "height", Category: CategoryWindowRank, Modifiable: true, DataType: "list", Tracks: []Track{TrackACIS}},
		{Name: "lower_threshold", Category: CategoryWindowRank, Modifiable: true, DataType: "list", Tracks: []Track{TrackACIS}},
		{Name: "pha_range", Category: CategoryWindowRank, Modifiable: true, DataType: "list", Tracks: []Track{TrackACIS}},
		{Name: "sample", Category: CategoryWindowRank, Modifiable: true, DataType: "list", Tracks: []Track{TrackACIS}},

		// SI-mode parameters carry their own instrument-team tracks.
		{Name: "si_mode", Category: CategoryACIS, Modifiable: true, DataType: "string", Tracks: []Track{TrackACISSI}},
		{Name: "hrc_si_mode", Category: CategoryHRC, Modifiable: true, DataType: "string", Tracks: []Track{TrackHRCSI}},
		{Name: "hrc_zero_block", Category: CategoryHRC, Modifiable: true, DataType: "string", Tracks: []Track{TrackHRCSI}},
		{Name: "hrc_timing_mode", Category: CategoryHRC, Modifiable: true, DataType: "string", Tracks: []Track{TrackHRCSI}},
	}

	catalog := &Catalog{specs: make(map[string]ParameterSpec, len(specs))}
	for _, spec := range specs {
		catalog.specs[spec.Name] = spec
		catalog.order = append(catalog.order, spec.Name)
	}
	catalog.groups = []FlagGroup{
		{Flag: "dither_flag", Members: []string{"y_amp", "y_freq", "y_phase", "z_amp", "z_freq", "z_phase"}},
		{Flag: "window_flag", RankKey: "time_ranks", Members: []string{"window_constraint", "tstart", "tstop"}},
		{Flag: "roll_flag", RankKey: "roll_ranks", Members: []string{"roll_constraint", "roll_180", "roll", "roll_tolerance"}},
		{Flag: "spwindow_flag", RankKey: "window_ranks", Members: []string{"chip", "start_row", "start_column", "width", "height", "lower_threshold", "pha_range", "sample"}},
	}
	return catalog
}

// Lookup returns the catalog entry for a parameter name.
func (c *Catalog) Lookup(name string) (ParameterSpec, bool) {
	spec, ok := c.specs[name]
	return spec, ok
}

// Names returns all parameter names in catalog order.
func (c *Catalog) Names() []string {
	return c.order
}

// Groups returns the flag-gated parameter groups.
func (c *Catalog) Groups() []FlagGroup {
	return c.groups
}

// Governs reports whether any of the named parameters falls under the given
// signoff track.
func (c *Catalog) Governs(track Track, names []string) bool {
	for _, name := range names {
		spec, ok := c.specs[name]
		if !ok {
			continue
		}
		for _, t := range spec.Tracks {
			if t == track {
				return true
			}
		}
	}
	return false
}

// isGroupMember reports whether a parameter belongs to any flag-gated group.
func (c *Catalog) isGroupMember(name string) bool {
	for _, group := range c.groups {
		for _, member := range group.Members {
			if member == name {
				return true
			}
		}
	}
	return false
}
