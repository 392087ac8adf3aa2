package dtos

type ProfileRequest struct {
	FullName     string   `json:"full_name"`
	Headline     string   `json:"headline"`
	Summary      string   `json:"summary"`
	Skills       []string `json:"skills"`
	Locations    []string `json:"locations"`
	RemoteOnly   bool     `json:"remote_only"`
	MinSalary    int      `json:"min_salary"`
	YearsOfExp   int      `json:"years_of_experience"`
	DesiredRoles []string `json:"desired_roles"`
}

type AutoApplySettingsRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}
