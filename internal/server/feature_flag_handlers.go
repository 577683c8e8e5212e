package server

import "github.com/gofiber/fiber/v2"

type flagState struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	Enabled bool   `json:"enabled"`
}

// GetFeatureFlags lists every flag with its configured value and whether it
// is on for the calling admin.
// @Summary Feature flags
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} object{success=bool,flags=[]server.flagState}
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/feature-flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(uint)

	raw := s.featureFlags.Raw()
	flags := make([]flagState, 0, len(raw))
	for _, name := range s.featureFlags.Names() {
		flags = append(flags, flagState{
			Name:    name,
			Value:   raw[name],
			Enabled: s.featureFlags.Enabled(name, userID),
		})
	}
	return c.JSON(fiber.Map{"success": true, "flags": flags})
}
