package envconfig

// =============================================================================
// Solver
// =============================================================================

var (
	// Solver waehlt das registrierte Solver-Backend
	Solver = StringWithDefault("MIPVERIFY_SOLVER", "simplex")

	// Tightening waehlt den Algorithmus fuer Bound-Berechnungen
	// Werte: interval, lp, mip (Default)
	Tightening = StringWithDefault("MIPVERIFY_TIGHTENING", "mip")

	// BuildNodeLimit begrenzt Branch-and-Bound-Knoten pro Bound-Berechnung
	// 0 = kein Limit
	BuildNodeLimit = Uint("MIPVERIFY_BUILD_NODE_LIMIT", 0)

	// SearchNodeLimit begrenzt Branch-and-Bound-Knoten der finalen Suche
	// 0 = kein Limit
	SearchNodeLimit = Uint("MIPVERIFY_SEARCH_NODE_LIMIT", 0)

	// SearchGap ist die relative Optimalitaetsluecke der finalen Suche
	// Bound-Berechnungen laufen immer ohne Luecke
	SearchGap = Float("MIPVERIFY_SEARCH_GAP", 0)
)

// =============================================================================
// Cache
// =============================================================================

var (
	// CacheBackend waehlt den Cache-Store: disk (Default) oder sqlite
	CacheBackend = StringWithDefault("MIPVERIFY_CACHE_BACKEND", "disk")

	// NoCache deaktiviert das Laden und Speichern gebauter Modelle
	NoCache = Bool("MIPVERIFY_NOCACHE")
)

// =============================================================================
// Parallelitaet
// =============================================================================

var (
	// NumParallel setzt die Anzahl parallel bearbeiteter Samples im Batch
	// Jedes Sample hat sein eigenes Modell
	NumParallel = Uint("MIPVERIFY_NUM_PARALLEL", 1)
)
