package model

// Profile describes the user the leads are gathered for.
type Profile struct {
	JobTitle       string           `json:"job_title"`
	Location       string           `json:"location"`
	Bio            string           `json:"bio"`
	WorkExperience []WorkExperience `json:"work_experience"`
}

// WorkExperience is one entry of a profile's work history. Dates use
// YYYY-MM; EndDate may be "Present".
type WorkExperience struct {
	Position    string `json:"position"`
	Company     string `json:"company"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Description string `json:"description"`
}
