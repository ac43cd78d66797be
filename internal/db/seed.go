package db

import (
	"fmt"
	"log/slog"

	"campusdesk/internal/models"

	"gorm.io/gorm"
)

var defaultClubs = []models.Club{
	{Name: "HackSlash", Description: "Student developer group running hackathons, workshops and hands-on projects in ML, web and app development.", President: "Student Lead", Email: "hackslash@nitp.ac.in", Image: "/images/club_images/hackslash.png", Achievements: "Organized Hackathons, Developed College App", Website: "https://hackslash.co.in", Social: "https://instagram.com/hackslash_nitp"},
	{Name: "GDSC NIT Patna", Description: "Google developer student community for peer learning across web, Android, ML and cloud.", President: "GDSC Lead", Email: "gdsc@nitp.ac.in", Image: "/images/club_images/gdsc.jpg", Achievements: "Solution Challenge Participants, Android Study Jams", Website: "https://gdsc.community.dev/national-institute-of-technology-nit-patna/", Social: "https://instagram.com/gdsc_nitp"},
	{Name: "Robotics Club", Description: "Robotics, automation and electronics: IoT, drones, 3D design and bot fabrication.", President: "Club Captain", Email: "robotics@nitp.ac.in", Image: "/images/club_images/robotics.png", Achievements: "Smart India Hackathon Finalists, Robowars Winners", Website: "https://roboticsnitp.co.in", Social: "https://instagram.com/robotics_nitp"},
	{Name: "SAE INDIA NITP", Description: "Automotive and aerodynamics design teams building vehicles for national competitions.", Email: "saeindia@nitp.ac.in", Website: "https://tesla-nitp.vercel.app/"},
	{Name: "Expresso", Description: "Literary and debating society.", Email: "expresso@nitp.ac.in", Website: "https://expresso-nitp.github.io/"},
	{Name: "Drama & Film Club NIT Patna", Description: "Stage plays, street theatre and short films.", Email: "nss@nitp.ac.in"},
	{Name: "Vista Club", Description: "Photography and visual arts.", Email: "ecell@nitp.ac.in"},
	{Name: "DesCo club", Description: "Design community for UI, graphics and branding.", Email: "sac@nitp.ac.in"},
	{Name: "IEEE Student Branch", Description: "IEEE chapter for electrical and electronics engineering.", Email: "ieee@nitp.ac.in", Website: "https://www.ieee.org"},
	{Name: "ASME Student Section", Description: "Mechanical engineering talks, competitions and industry visits.", Email: "asme@nitp.ac.in", Website: "https://www.asme.org"},
	{Name: "Unnat Bharat Abhiyan (UBA)", Description: "Rural outreach projects with nearby villages.", Email: "uba@nitp.ac.in"},
	{Name: "ISIE NITP SRA", Description: "Industrial electronics student chapter.", Email: "iste@nitp.ac.in", Website: "http://www.isteonline.in"},
	{Name: "SPIC MACAY", Description: "Indian classical music and culture among youth.", Email: "spicmacay@nitp.ac.in", Website: "https://spicmacay.org"},
}

// SeedClubs fills the club directory on first run.
func SeedClubs(conn *gorm.DB) error {
	var count int64
	if err := conn.Model(&models.Club{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		slog.Debug("clubs already seeded, skipping")
		return nil
	}

	clubs := make([]models.Club, len(defaultClubs))
	copy(clubs, defaultClubs)
	if err := conn.Create(&clubs).Error; err != nil {
		return fmt.Errorf("failed to seed clubs: %w", err)
	}
	slog.Info("initial clubs created", "count", len(clubs))
	return nil
}
