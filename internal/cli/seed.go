package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/marketing-pilot/internal/model"
	"github.com/nhle/marketing-pilot/internal/store"
)

func newSeedCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load sample users, clients, projects and tasks",
		Long: `Load a small sample team for local development. Task dates are relative
to now so that every automation check has something to flag.`,
		GroupID: groupSetup,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.load(cmd)
			if err != nil {
				return err
			}
			sum, err := seedSampleData(cmd.Context(), c.Store, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d users, %d clients, %d projects, %d tasks\n",
				sum.users, sum.clients, sum.projects, sum.tasks)
			for _, u := range sum.userIDs {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", u)
			}
			return nil
		},
	}
}

type seedSummary struct {
	users, clients, projects, tasks int
	userIDs                         []string
}

// seedSampleData writes the sample team. IDs are fixed, so running it
// twice updates users and clients and fails on the duplicate tasks.
func seedSampleData(ctx context.Context, st store.Store, now time.Time) (*seedSummary, error) {
	at := func(d time.Duration) *time.Time {
		t := now.Add(d)
		return &t
	}
	day := 24 * time.Hour

	users := []model.User{
		{ID: "u-ana", Name: "Ana Ruiz", Email: "ana@example.com", Role: model.RoleMember},
		{ID: "u-ben", Name: "Ben Okafor", Email: "ben@example.com", Role: model.RoleMember},
		{ID: "u-mia", Name: "Mia Chen", Email: "mia@example.com", Role: model.RoleManager},
	}
	clients := []model.Client{
		{ID: "c-acme", Name: "Acme Coffee"},
		{ID: "c-north", Name: "Northwind Outdoor"},
	}
	projects := []model.Project{
		{ID: "p-spring", Name: "Spring launch", ClientID: "c-acme", OwnerID: "u-mia", DueDate: at(21 * day)},
	}
	spring := "p-spring"
	tasks := []model.Task{
		{ID: "t-brief", Title: "Write campaign brief", AssigneeID: "u-ana", ClientID: "c-acme", ProjectID: &spring,
			Status: model.StatusInProgress, DueDate: at(20 * time.Hour), LastActivityAt: at(-2 * time.Hour)},
		{ID: "t-social", Title: "Schedule social posts", AssigneeID: "u-ben", ClientID: "c-acme", ProjectID: &spring,
			Status: model.StatusAssigned, DueDate: at(-1 * day), LastActivityAt: at(-1 * day)},
		{ID: "t-audit", Title: "SEO audit", AssigneeID: "u-ana", ClientID: "c-north",
			Status: model.StatusInReview, DueDate: at(10 * day), LastActivityAt: at(-5 * day)},
		{ID: "t-photos", Title: "Product photo shoot", AssigneeID: "u-ben", ClientID: "c-north",
			Status: model.StatusDone, DueDate: at(-3 * day), CompletedAt: at(-1 * day), TimeSpentSeconds: 5400},
		{ID: "t-newsletter", Title: "March newsletter", ClientID: "c-north",
			Status: model.StatusAssigned, DueDate: at(36 * time.Hour)},
	}

	sum := &seedSummary{}
	for i := range users {
		if err := st.UpsertUser(ctx, &users[i]); err != nil {
			return nil, fmt.Errorf("seeding user %s: %w", users[i].ID, err)
		}
		sum.users++
		sum.userIDs = append(sum.userIDs, fmt.Sprintf("%s (%s, %s)", users[i].ID, users[i].Name, users[i].Role))
	}
	for i := range clients {
		if err := st.UpsertClient(ctx, &clients[i]); err != nil {
			return nil, fmt.Errorf("seeding client %s: %w", clients[i].ID, err)
		}
		sum.clients++
	}
	for i := range projects {
		if err := st.CreateProject(ctx, &projects[i]); err != nil {
			return nil, fmt.Errorf("seeding project %s: %w", projects[i].ID, err)
		}
		sum.projects++
	}
	for i := range tasks {
		tasks[i].CreatedAt = now.Add(-7 * day)
		if err := st.CreateTask(ctx, &tasks[i]); err != nil {
			return nil, fmt.Errorf("seeding task %s: %w", tasks[i].ID, err)
		}
		sum.tasks++
	}
	return sum, nil
}
