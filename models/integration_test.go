package models_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"
	"github.com/stive2025/collapi-sub001/config"
	"github.com/stive2025/collapi-sub001/models"
	"github.com/stive2025/collapi-sub001/models/reports"
	"github.com/stive2025/collapi-sub001/utils"
)

// setupIntegration starts MySQL and Redis containers and points config at them.
func setupIntegration(t *testing.T) {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "collapi_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()
}

type fixture struct {
	business *models.Business
	admin    *models.User
	agent    *models.User
	client   *models.Client
	credit   *models.Credit
	campaign *models.Campaign
}

func adminCtx(f *fixture) context.Context {
	ctx := utils.SetBusinessIdInContext(context.Background(), f.business.ID.String())
	ctx = utils.SetUserIdInContext(ctx, f.admin.ID)
	return utils.SetUserRoleInContext(ctx, string(models.UserRoleAdmin))
}

func agentCtx(f *fixture) context.Context {
	ctx := utils.SetBusinessIdInContext(context.Background(), f.business.ID.String())
	ctx = utils.SetUserIdInContext(ctx, f.agent.ID)
	return utils.SetUserRoleInContext(ctx, string(models.UserRoleAgent))
}

func seed(t *testing.T, now time.Time) *fixture {
	t.Helper()
	f := &fixture{}
	var err error
	f.business, err = models.CreateBusiness(context.Background(), &models.NewBusiness{
		Name:     "Cobranzas Test",
		Timezone: "America/Guayaquil",
	})
	if err != nil {
		t.Fatalf("CreateBusiness: %v", err)
	}

	ctx := utils.SetBusinessIdInContext(context.Background(), f.business.ID.String())
	if f.admin, err = models.CreateUser(ctx, &models.NewUser{Username: "admin", Name: "Admin", Role: models.UserRoleAdmin}); err != nil {
		t.Fatalf("CreateUser admin: %v", err)
	}
	if f.agent, err = models.CreateUser(ctx, &models.NewUser{Username: "agent1", Name: "Agent One", Role: models.UserRoleAgent}); err != nil {
		t.Fatalf("CreateUser agent: %v", err)
	}

	ctx = adminCtx(f)
	if f.client, err = models.CreateClient(ctx, &models.NewClient{Identification: "0912345678", Name: "Maria Perez"}); err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	f.credit, err = models.CreateCredit(ctx, &models.NewCredit{
		SyncId:        "CR-1",
		ClientId:      f.client.ID,
		UserId:        &f.agent.ID,
		Amount:        decimal.NewFromInt(1200),
		PendingAmount: decimal.NewFromInt(800),
		TotalFees:     12,
		PaidFees:      4,
	})
	if err != nil {
		t.Fatalf("CreateCredit: %v", err)
	}
	f.campaign, err = models.CreateCampaign(ctx, &models.NewCampaign{
		Name:      "June",
		BeginTime: now.Add(-time.Hour),
		EndTime:   now.Add(24 * time.Hour),
		Agents:    []int{f.agent.ID, f.agent.ID},
	})
	if err != nil {
		t.Fatalf("CreateCampaign: %v", err)
	}
	return f
}

func TestCollectionFlowAndMetrics(t *testing.T) {
	setupIntegration(t)
	now := time.Now()
	f := seed(t, now)

	if f.credit.PendingFees != 8 || f.credit.ManagementTray != models.ManagementTrayPending {
		t.Fatalf("credit after create: pending_fees=%d tray=%s", f.credit.PendingFees, f.credit.ManagementTray)
	}
	if len(f.campaign.Agents) != 1 {
		t.Fatalf("campaign agents not deduplicated: %v", f.campaign.Agents)
	}

	ctx := agentCtx(f)
	call, err := models.CreateCollectionCall(ctx, &models.NewCollectionCall{CreditId: f.credit.ID, DurationSeconds: 95})
	if err != nil {
		t.Fatalf("CreateCollectionCall: %v", err)
	}
	management, err := models.CreateManagement(ctx, &models.NewManagement{
		CreditId:         f.credit.ID,
		CampaignId:       &f.campaign.ID,
		State:            models.ManagementStateEffective,
		Substate:         "PAID IN FULL",
		CollectionCallId: &call.ID,
	})
	if err != nil {
		t.Fatalf("CreateManagement: %v", err)
	}

	credit, err := models.GetCredit(ctx, f.credit.ID)
	if err != nil {
		t.Fatalf("GetCredit: %v", err)
	}
	if credit.ManagementTray != models.ManagementTrayInProgress || credit.ManagementStatus != "PAID IN FULL" {
		t.Fatalf("credit state tray=%s status=%s", credit.ManagementTray, credit.ManagementStatus)
	}
	if credit.PaidFees != 4 || credit.PendingFees != 8 {
		t.Fatalf("management touched fees: %+v", credit)
	}

	res, err := models.SyncCredits(adminCtx(f), []models.CreditSyncInput{
		{SyncId: "CR-1", ClientIdentification: "0912345678", ClientName: "Maria Perez", TotalFees: 12, PaidFees: 5,
			Amount: decimal.NewFromInt(1200), PendingAmount: decimal.NewFromInt(700)},
		{SyncId: "CR-2", ClientIdentification: "0987654321", ClientName: "Jose Vera", TotalFees: 6,
			Amount: decimal.NewFromInt(300), PendingAmount: decimal.NewFromInt(300)},
	}, now)
	if err != nil {
		t.Fatalf("SyncCredits: %v", err)
	}
	if res.Created != 1 || res.Updated != 1 {
		t.Fatalf("sync result=%+v", res)
	}

	// a sync long after the management must not restart the time in state
	if err := config.GetDB().Model(&models.Credit{}).Where("id = ?", f.credit.ID).
		UpdateColumn("updated_at", now.Add(time.Hour)).Error; err != nil {
		t.Fatalf("bump updated_at: %v", err)
	}
	tis, err := reports.GetCreditTimeInState(ctx, f.credit.ID, now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("GetCreditTimeInState: %v", err)
	}
	if d := tis.Since.Sub(management.CreatedAt); d > time.Second || d < -time.Second {
		t.Fatalf("time in state since=%v want last management at %v", tis.Since, management.CreatedAt)
	}
	if tis.ManagementTray != models.ManagementTrayInProgress {
		t.Fatalf("tray=%s", tis.ManagementTray)
	}

	store := reports.NewGormMetricsStore(config.GetDB())
	m, err := reports.NewMetricsAggregator(store).Compute(ctx, f.agent.ID, &f.campaign.ID, now)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	want := reports.AgentMetrics{
		AssignedCredits:           1,
		TotalManagements:          1,
		ManagementsToday:          1,
		EffectiveManagements:      1,
		EffectiveManagementsToday: 1,
		PendingCredits:            0,
		InProgressCredits:         1,
		InProgressCreditsToday:    1,
		CallsToday:                1,
		CallsTotalForCampaign:     1,
	}
	if m != want {
		t.Fatalf("metrics\n got  %+v\n want %+v", m, want)
	}

	zero, err := reports.NewMetricsAggregator(store).Compute(ctx, f.agent.ID, nil, now)
	if err != nil || zero != (reports.AgentMetrics{}) {
		t.Fatalf("no campaign: %+v err=%v", zero, err)
	}
}

func TestAgentOutsideCampaignCannotManage(t *testing.T) {
	setupIntegration(t)
	now := time.Now()
	f := seed(t, now)

	other, err := models.CreateUser(adminCtx(f), &models.NewUser{Username: "agent2", Name: "Agent Two", Role: models.UserRoleAgent})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	ctx := utils.SetUserIdInContext(agentCtx(f), other.ID)
	_, err = models.CreateManagement(ctx, &models.NewManagement{
		CreditId:   f.credit.ID,
		CampaignId: &f.campaign.ID,
		State:      models.ManagementStateNoContact,
	})
	if !errors.Is(err, models.ErrNotCampaignAgent) {
		t.Fatalf("expected ErrNotCampaignAgent, got %v", err)
	}
}

func TestAccessTokenLifecycle(t *testing.T) {
	setupIntegration(t)
	now := time.Now()
	f := seed(t, now)

	plain, token, err := models.CreateAccessToken(adminCtx(f), f.agent.ID, "test", time.Hour)
	if err != nil {
		t.Fatalf("CreateAccessToken: %v", err)
	}
	session, err := models.ResolveAccessToken(context.Background(), plain, now)
	if err != nil {
		t.Fatalf("ResolveAccessToken: %v", err)
	}
	if session.UserId != f.agent.ID || session.BusinessId != f.business.ID.String() || session.Role != models.UserRoleAgent {
		t.Fatalf("session=%+v", session)
	}
	if _, err := models.ResolveAccessToken(context.Background(), plain, now.Add(2*time.Hour)); !errors.Is(err, models.ErrTokenInvalid) {
		t.Fatalf("expired token accepted: %v", err)
	}

	if _, err := models.RevokeAccessToken(adminCtx(f), token.ID); err != nil {
		t.Fatalf("RevokeAccessToken: %v", err)
	}
	if _, err := models.ResolveAccessToken(context.Background(), plain, now); !errors.Is(err, models.ErrTokenInvalid) {
		t.Fatalf("revoked token accepted: %v", err)
	}
	if _, err := models.ResolveAccessToken(context.Background(), "not-a-token", now); !errors.Is(err, models.ErrTokenInvalid) {
		t.Fatalf("unknown token accepted: %v", err)
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("collapi-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := dockerRun("exec", name, "redis-cli", "ping"); err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("collapi-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=collapi_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent"); err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// "127.0.0.1:49154\n"
	m := regexp.MustCompile(`:(\d+)`).FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	b, err := exec.Command("docker", args...).CombinedOutput()
	return string(b), err
}
