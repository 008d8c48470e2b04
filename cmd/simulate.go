package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/afetops/coordcore/app"
	"github.com/afetops/coordcore/config"
	"github.com/afetops/coordcore/core/model"
	"github.com/afetops/coordcore/core/request"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Inject a test help request and auto-dispatch it",
	RunE:  runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// The simulation runs entirely in process.
	cfg.Jobs.Queue = "memory"
	cfg.Jobs.Cache = "memory"
	cfg.Notifier.Enabled = false

	svc, err := app.New(cfg, headerAuth, dispatcherActor())
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := time.Now()
	disaster := model.Disaster{
		ID:        uuid.New(),
		Type:      model.DisasterEarthquake,
		Name:      "Simulated earthquake",
		Severity:  model.LevelCritical,
		Status:    model.DisasterActive,
		StartDate: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := svc.Store.Create(ctx, disaster); err != nil {
		return fmt.Errorf("seed disaster: %w", err)
	}
	team := model.Team{
		ID:         uuid.New(),
		DisasterID: disaster.ID,
		Name:       "SAR Alpha",
		Type:       model.TeamSearchRescue,
		Status:     model.TeamReady,
		LeaderID:   uuid.New(),
		Capacity:   model.Capacity{Max: 3},
		Size:       6,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := svc.Store.Teams().Create(ctx, team); err != nil {
		return fmt.Errorf("seed team: %w", err)
	}

	req, err := svc.Requests.Submit(ctx, request.SubmitInput{
		DisasterID:  disaster.ID,
		RequestType: model.RequestRescue,
		Urgency:     model.LevelCritical,
		Requester:   model.RequesterContact{Name: "Test Citizen", Phone: "+900000000000"},
		Coordinates: &model.Point{Lat: 40.7661, Lon: 29.9174},
		Description: "simulated collapsed building",
		Source:      model.SourceApp,
	}, model.Actor{Role: model.RoleCitizen})
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	fmt.Printf("submitted request %s\n", req.ID)

	assigned, err := svc.Dispatch.Dispatch(ctx, req.ID)
	if err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	fmt.Printf("assigned to team %s\n", *assigned.AssignedTeamID)
	return nil
}
