package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/carewatch/carewatch/internal/daemon"
	"github.com/carewatch/carewatch/internal/profile"
	"github.com/carewatch/carewatch/internal/storage/sqlite"
)

// profileSeed is the YAML shape accepted by the import command.
type profileSeed struct {
	Name              string        `yaml:"name"`
	Age               int           `yaml:"age"`
	Address           string        `yaml:"address"`
	MedicalConditions string        `yaml:"medicalConditions"`
	Medications       string        `yaml:"medications"`
	Allergies         string        `yaml:"allergies"`
	DoctorInfo        string        `yaml:"doctorInfo"`
	Notes             string        `yaml:"notes"`
	Contacts          []contactSeed `yaml:"contacts"`
}

type contactSeed struct {
	Name         string `yaml:"name"`
	Relationship string `yaml:"relationship"`
	Phone        string `yaml:"phone"`
	Email        string `yaml:"email"`
}

// newImportCmd creates the import subcommand
func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Import a health profile from a YAML file",
		Long: `Import a health profile, including emergency contacts, from a YAML file.
The imported profile replaces the stored one. Run while the daemon is
stopped to avoid write contention.

Example file:

  name: Alex Morgan
  age: 78
  address: 12 Cedar Lane
  medicalConditions: hypertension
  contacts:
    - name: Sam Morgan
      relationship: son
      phone: 555-0100`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
				os.Exit(daemon.ExitConfigError)
			}
			return importProfile(args[0], cfg.Storage.DBPath())
		},
	}
}

func importProfile(path, dbPath string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var seed profileSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	p := profile.Profile{
		Name:              seed.Name,
		Age:               seed.Age,
		Address:           seed.Address,
		MedicalConditions: seed.MedicalConditions,
		Medications:       seed.Medications,
		Allergies:         seed.Allergies,
		DoctorInfo:        seed.DoctorInfo,
		Notes:             seed.Notes,
	}
	for _, c := range seed.Contacts {
		p.Contacts = append(p.Contacts, profile.EmergencyContact{
			Name:         c.Name,
			Relationship: c.Relationship,
			Phone:        c.Phone,
			Email:        c.Email,
		})
	}

	db, err := sqlite.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	store := sqlite.NewProfileStore(db)
	if err := store.SaveProfile(context.Background(), &p); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	fmt.Printf("Imported profile for %q with %d emergency contact(s)\n", p.Name, len(p.Contacts))
	return nil
}
