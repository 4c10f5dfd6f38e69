package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dukex/newsroom/pkg/cmd"
	"github.com/dukex/newsroom/pkg/log"
	"github.com/dukex/newsroom/pkg/models"
	"github.com/dukex/newsroom/pkg/persistence"
	"github.com/dukex/newsroom/pkg/services"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Seed is the content of a seed file. Entries that already exist, matched by name, are
// left untouched, so a seed file can be applied on every deploy.
type Seed struct {
	Roles     []SeedRole     `yaml:"roles"`
	Users     []SeedUser     `yaml:"users"`
	Workflows []SeedWorkflow `yaml:"workflows"`
}

type SeedRole struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type SeedUser struct {
	UserName    string   `yaml:"user_name"`
	Email       string   `yaml:"email"`
	FirstName   string   `yaml:"first_name"`
	LastName    string   `yaml:"last_name"`
	AccessToken string   `yaml:"access_token"`
	Admin       bool     `yaml:"admin"`
	Roles       []string `yaml:"roles"`
}

// SeedWorkflow is created by Owner, who receives the creator grants.
type SeedWorkflow struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Owner       string      `yaml:"owner"`
	Stages      []SeedStage `yaml:"stages"`
	Grants      []SeedGrant `yaml:"grants"`
}

type SeedStage struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Trigger     *models.Trigger `yaml:"trigger"`
	Grants      []SeedGrant     `yaml:"grants"`
}

// SeedGrant names exactly one of Role or User. Access is "read", "write", 0 or 1.
type SeedGrant struct {
	Role   string `yaml:"role"`
	User   string `yaml:"user"`
	Access string `yaml:"access"`
}

var errInvalidSeed = errors.New("invalid seed file")

func SeedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Load roles, users and workflows from a YAML file",
		Flags: append(commonFlags(),
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Path to the seed file",
				Required: true,
				Sources:  cli.EnvVars("SEED_FILE"),
			},
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			logger := log.WithModule("seed")

			seed, err := LoadSeed(command.String("file"))
			if err != nil {
				return err
			}

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(context.Background()); err != nil {
					logger.Error("Failed to close persistence", "error", err)
				}
			}()

			return NewSeeder(persistence, cmd.NewTriggerRegistry(logger), logger).Apply(ctx, seed)
		},
	}
}

func LoadSeed(path string) (*Seed, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)

	var seed Seed

	err = decoder.Decode(&seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidSeed, err)
	}

	return &seed, nil
}

// Seeder writes a Seed. Users and roles go straight to the repositories, since the first
// administrator cannot be created through the API; workflows go through the services.
type Seeder struct {
	persistence persistence.Persistence
	workflows   *services.Workflow
	stages      *services.Stage
	grants      *services.Grants
	logger      *slog.Logger
}

func NewSeeder(store persistence.Persistence, triggers services.TriggerValidator, logger *slog.Logger) *Seeder {
	permissions := services.NewPermissionResolver(logger, nil)

	return &Seeder{
		persistence: store,
		workflows:   services.NewWorkflow(store, permissions, logger),
		stages:      services.NewStage(store, permissions, services.NewSequenceAllocator(logger), triggers, logger),
		grants:      services.NewGrants(store, permissions, logger),
		logger:      logger,
	}
}

func (s *Seeder) Apply(ctx context.Context, seed *Seed) error {
	for _, role := range seed.Roles {
		err := s.seedRole(ctx, role)
		if err != nil {
			return err
		}
	}

	for _, user := range seed.Users {
		err := s.seedUser(ctx, user)
		if err != nil {
			return err
		}
	}

	for _, workflow := range seed.Workflows {
		err := s.seedWorkflow(ctx, workflow)
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *Seeder) seedRole(ctx context.Context, seed SeedRole) error {
	roles := s.persistence.RoleRepository()

	_, err := roles.GetByName(ctx, seed.Name)
	if err == nil {
		return nil
	}

	if !persistence.IsRoleNotFound(err) {
		return err
	}

	err = roles.Create(ctx, &models.Role{Name: seed.Name, Description: seed.Description})
	if err != nil {
		return fmt.Errorf("failed to seed role %q: %w", seed.Name, err)
	}

	s.logger.InfoContext(ctx, "Seeded role", "name", seed.Name)

	return nil
}

func (s *Seeder) seedUser(ctx context.Context, seed SeedUser) error {
	users := s.persistence.UserRepository()

	user, err := users.GetByUserName(ctx, seed.UserName)
	if err != nil {
		if !persistence.IsUserNotFound(err) {
			return err
		}

		user = &models.User{
			UserName:    seed.UserName,
			Email:       seed.Email,
			FirstName:   seed.FirstName,
			LastName:    seed.LastName,
			AccessToken: seed.AccessToken,
			Admin:       seed.Admin,
		}

		generated := user.AccessToken == ""
		if generated {
			user.AccessToken = services.NewAccessToken()
		}

		err = users.Create(ctx, user)
		if err != nil {
			return fmt.Errorf("failed to seed user %q: %w", seed.UserName, err)
		}

		if generated {
			s.logger.InfoContext(ctx, "Seeded user", "user_name", user.UserName, "access_token", user.AccessToken)
		} else {
			s.logger.InfoContext(ctx, "Seeded user", "user_name", user.UserName)
		}
	}

	for _, roleName := range seed.Roles {
		role, err := s.persistence.RoleRepository().GetByName(ctx, roleName)
		if err != nil {
			return fmt.Errorf("user %q: %w", seed.UserName, err)
		}

		err = s.persistence.RoleRepository().AddMember(ctx, role.ID, user.ID)
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *Seeder) seedWorkflow(ctx context.Context, seed SeedWorkflow) error {
	_, err := s.persistence.WorkflowRepository().GetByName(ctx, seed.Name)
	if err == nil {
		return nil
	}

	if !persistence.IsWorkflowNotFound(err) {
		return err
	}

	owner, err := s.persistence.UserRepository().GetByUserName(ctx, seed.Owner)
	if err != nil {
		return fmt.Errorf("%w: owner %q of workflow %q: %w", errInvalidSeed, seed.Owner, seed.Name, err)
	}

	workflow, err := s.workflows.Create(ctx, owner, &models.Workflow{Name: seed.Name, Description: seed.Description})
	if err != nil {
		return fmt.Errorf("failed to seed workflow %q: %w", seed.Name, err)
	}

	err = s.seedGrants(ctx, owner, models.WorkflowTarget(workflow.ID), seed.Grants)
	if err != nil {
		return err
	}

	for _, stageSeed := range seed.Stages {
		stage, err := s.stages.Create(ctx, owner, workflow.ID, &models.Stage{
			Name:        stageSeed.Name,
			Description: stageSeed.Description,
			Trigger:     stageSeed.Trigger,
		}, nil)
		if err != nil {
			return fmt.Errorf("failed to seed stage %q: %w", stageSeed.Name, err)
		}

		err = s.seedGrants(ctx, owner, models.StageTarget(stage.ID), stageSeed.Grants)
		if err != nil {
			return err
		}
	}

	s.logger.InfoContext(ctx, "Seeded workflow", "name", seed.Name, "stages", len(seed.Stages))

	return nil
}

func (s *Seeder) seedGrants(ctx context.Context, owner *models.User, target models.Target, grants []SeedGrant) error {
	for _, seed := range grants {
		grantee, err := s.grantee(ctx, seed)
		if err != nil {
			return err
		}

		access, err := models.ParseAccessLevel(seed.Access)
		if err != nil {
			return fmt.Errorf("%w: %w", errInvalidSeed, err)
		}

		_, err = s.grants.Upsert(ctx, owner, target, grantee, access)
		if err != nil {
			return fmt.Errorf("failed to seed grant on %s %s: %w", target.Type, target.ID, err)
		}
	}

	return nil
}

func (s *Seeder) grantee(ctx context.Context, seed SeedGrant) (models.Grantee, error) {
	switch {
	case seed.Role != "" && seed.User == "":
		role, err := s.persistence.RoleRepository().GetByName(ctx, seed.Role)
		if err != nil {
			return models.Grantee{}, err
		}

		return models.Grantee{Type: models.GranteeRole, ID: role.ID}, nil
	case seed.User != "" && seed.Role == "":
		user, err := s.persistence.UserRepository().GetByUserName(ctx, seed.User)
		if err != nil {
			return models.Grantee{}, err
		}

		return models.Grantee{Type: models.GranteeUser, ID: user.ID}, nil
	default:
		return models.Grantee{}, fmt.Errorf("%w: a grant names exactly one of role or user", errInvalidSeed)
	}
}
