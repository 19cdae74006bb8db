package domain

// seedLine 模板种子行（见 migrations/001_init.sql，两处需保持一致）
type seedLine struct {
	code     string
	label    string
	blocking bool
}

var templateSeed = map[Transition][]seedLine{
	TransitionFramingToRoofing: {
		{"anchor_bolts", "Anchor bolts torqued and capped", true},
		{"beam_bearing", "Beams have full bearing on posts", true},
		{"joist_hangers", "Joist hangers fully nailed", true},
		{"subfloor_fastening", "Subfloor glued and screwed", true},
		{"wall_plumb", "Walls plumb within tolerance", true},
		{"wall_bracing", "Temporary wall bracing in place", true},
		{"shear_panels", "Shear panels nailed per schedule", true},
		{"king_studs", "King/jack studs per header schedule", true},
		{"headers", "Headers sized per plan", true},
		{"point_loads", "Point loads carried to foundation", true},
		{"trusses_aligned", "Roof trusses aligned and spaced per layout", true},
		{"truss_bracing", "Permanent truss bracing installed", true},
		{"hurricane_ties", "Hurricane ties on every truss", true},
		{"sheathing_nailing", "Roof sheathing nailing pattern complete", true},
		{"fire_blocking", "Fire blocking at penetrations", false},
		{"debris_clear", "Framing debris cleared from decks", false},
	},
	TransitionRoofingToTrades: {
		{"underlayment", "Underlayment complete, no exposed deck", true},
		{"flashing_valleys", "Valley flashing installed", true},
		{"flashing_chimney", "Chimney/skylight flashing sealed", true},
		{"drip_edge", "Drip edge on all eaves and rakes", true},
		{"shingle_pattern", "Shingle exposure and nailing per spec", true},
		{"ridge_vent", "Ridge venting continuous", true},
		{"roof_penetrations", "All penetrations booted and sealed", true},
		{"gutters_ready", "Fascia ready for gutter install", false},
		{"attic_access", "Attic access unobstructed", false},
		{"roof_debris", "Roof and yard clear of debris", false},
	},
	TransitionTradesToBackframe: {
		{"plumbing_rough_pass", "Plumbing rough-in inspection passed", true},
		{"electrical_rough_pass", "Electrical rough-in inspection passed", true},
		{"hvac_rough_pass", "HVAC rough-in inspection passed", true},
		{"gas_test", "Gas line pressure test holding", true},
		{"low_voltage", "Low voltage pre-wire complete", false},
		{"insulation_ready", "Cavities clear for insulation", true},
		{"vapor_barrier", "Vapor barrier continuous", true},
		{"draft_stops", "Draft stops at chases", true},
		{"service_penetrations_sealed", "Service penetrations fire-sealed", true},
		{"trade_damage_repaired", "Trade damage to framing repaired", true},
		{"floors_swept", "Floors swept, trade waste removed", false},
		{"materials_staged", "Backframe materials staged on site", false},
	},
	TransitionBackframeToFinal: {
		{"drywall_complete", "Drywall hung, taped and sanded", true},
		{"trim_complete", "Interior trim complete", true},
		{"doors_adjusted", "Doors hung and adjusted", true},
		{"cabinets_secured", "Cabinets level and secured", true},
		{"handrails_secure", "Handrails and guards secure", true},
		{"smoke_detectors", "Smoke/CO detectors installed", true},
		{"punch_list_clear", "Outstanding punch items closed", true},
		{"paint_touchups", "Paint touch-ups complete", false},
		{"flooring_protected", "Finished flooring protected", false},
		{"final_clean", "Rough clean complete", false},
	},
}

// SeedTemplates 返回某过渡点的模板种子（内存 repo 与测试共用）
func SeedTemplates(t Transition) []GateCheckTemplate {
	lines := templateSeed[t]
	out := make([]GateCheckTemplate, 0, len(lines))
	for i, l := range lines {
		out = append(out, GateCheckTemplate{
			Transition: t,
			ItemCode:   l.code,
			ItemLabel:  l.label,
			SortOrder:  i + 1,
			IsBlocking: l.blocking,
		})
	}
	return out
}
