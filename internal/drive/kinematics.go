package drive

// Geometry describes a differential (skid-steer) drive train.
type Geometry struct {
	WheelRadius float64 // m
	TrackWidth  float64 // m
}

// RobotToWheels converts a body command (m/s, rad/s) into wheel angular
// velocities in rad/s.
func (g Geometry) RobotToWheels(v, omega float64) (left, right float64) {
	turn := omega * g.TrackWidth / (2 * g.WheelRadius)
	return v/g.WheelRadius - turn, v/g.WheelRadius + turn
}

// WheelsToRobot is the inverse of RobotToWheels.
func (g Geometry) WheelsToRobot(left, right float64) (v, omega float64) {
	v = (right + left) * g.WheelRadius / 2
	omega = (right - left) * g.WheelRadius / g.TrackWidth
	return v, omega
}
