package models

import "time"

// ProjectStatus is derived from the clock and the project fields. It is
// never stored, so it cannot desynchronize from time.
type ProjectStatus string

const (
	ProjectPrelaunch    ProjectStatus = "prelaunch"
	ProjectSuspended    ProjectStatus = "suspended"
	ProjectCrowdfunding ProjectStatus = "crowdfunding"
	ProjectFailed       ProjectStatus = "failed"
	ProjectAvailable    ProjectStatus = "available"
	ProjectFunded       ProjectStatus = "funded"
)

// StatusAt computes the derived campaign status at the given instant.
// pledged is the amount raised so far in cents.
func (p *Project) StatusAt(now time.Time, pledged int64) ProjectStatus {
	switch {
	case now.Before(p.StartTime):
		return ProjectPrelaunch
	case p.SuspendedTime != nil:
		return ProjectSuspended
	case !now.Before(p.StartTime) && !now.After(p.EndTime):
		return ProjectCrowdfunding
	case pledged < p.Target:
		return ProjectFailed
	case p.AcceptsPreorders:
		return ProjectAvailable
	default:
		return ProjectFunded
	}
}
