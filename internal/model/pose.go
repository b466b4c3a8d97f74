package model

// Pose is a 2D position and heading. Heading is in degrees, normalised to (-180, 180].
type Pose struct {
	X       float64 `json:"x"`       // m
	Y       float64 `json:"y"`       // m
	Heading float64 `json:"heading"` // deg
}

// Point is a 2D waypoint without heading.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// OdometrySample is the pose estimate produced once per control tick.
type OdometrySample struct {
	Pose        Pose    `json:"pose"`
	AngularRate float64 `json:"angular_rate"` // deg/s
	Distance    float64 `json:"distance"`     // m travelled this tick
}

// PathState is one sample of a generated trajectory.
type PathState struct {
	Pose      Pose    `json:"pose"`
	Curvature float64 `json:"curvature"` // 1/m, signed
	Distance  float64 `json:"distance"`  // m of arc length from the start
}
