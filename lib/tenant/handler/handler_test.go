package tenanthandler

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"adops-backend/models"
	dbmodels "adops-backend/models/db"
)

func TestGetPolicy(t *testing.T) {
	t.Run(`full settings parse check`, func(t *testing.T) {
		i := impl{settingsStore: &fakeSettingsStore{settings: []dbmodels.TenantSetting{
			{TenantID: "t1", Code: models.ManualApprovalSetting, Value: "true"},
			{TenantID: "t1", Code: models.ApprovalOperationsSetting, Value: "create_media_buy, update_media_buy"},
			{TenantID: "t1", Code: models.PlatformCodeSetting, Value: "mock"},
			{TenantID: "t1", Code: models.SupportEmailSetting, Value: "adops@example.com"},
			{TenantID: "t1", Code: models.WebhookSecretSetting, Value: "s3cret"},
			{TenantID: "t1", Code: models.SimulationEnabledSetting, Value: "true"},
			{TenantID: "t1", Code: models.SimulationAccelerationSetting, Value: "7200"},
		}}}
		policy, err := i.GetPolicy("t1")
		require.Nil(t, err)
		require.NotNil(t, policy)
		require.Equal(t, "t1", policy.TenantID)
		require.Equal(t, true, policy.ManualApprovalRequired)
		require.Len(t, policy.ApprovalOperations, 2)
		require.Equal(t, true, policy.ApprovalOperations[models.ToolCreateMediaBuy])
		require.Equal(t, true, policy.ApprovalOperations[models.ToolUpdateMediaBuy])
		require.Equal(t, models.PlatformMock, policy.Platform)
		require.Equal(t, "adops@example.com", policy.SupportEmail)
		require.Equal(t, "s3cret", policy.WebhookSecret)
		require.Equal(t, true, policy.SimulationEnabled)
		require.Equal(t, float64(7200), policy.SimulationAcceleration)
	})

	t.Run(`partial settings defaults check`, func(t *testing.T) {
		i := impl{settingsStore: &fakeSettingsStore{settings: []dbmodels.TenantSetting{
			{TenantID: "t1", Code: models.ManualApprovalSetting, Value: "false"},
			{TenantID: "t1", Code: models.PlatformCodeSetting, Value: ""},
		}}}
		policy, err := i.GetPolicy("t1")
		require.Nil(t, err)
		require.NotNil(t, policy)
		require.Equal(t, false, policy.ManualApprovalRequired)
		// пустое значение не затирает платформу по умолчанию
		require.Equal(t, models.PlatformMock, policy.Platform)
		require.NotNil(t, policy.ApprovalOperations)
		require.Len(t, policy.ApprovalOperations, 0)
	})

	t.Run(`operations list with blanks check`, func(t *testing.T) {
		i := impl{settingsStore: &fakeSettingsStore{settings: []dbmodels.TenantSetting{
			{TenantID: "t1", Code: models.ApprovalOperationsSetting, Value: " create_media_buy ,, add_creative_assets,"},
		}}}
		policy, err := i.GetPolicy("t1")
		require.Nil(t, err)
		require.Len(t, policy.ApprovalOperations, 2)
		require.Equal(t, true, policy.ApprovalOperations[models.ToolCreateMediaBuy])
		require.Equal(t, true, policy.ApprovalOperations[models.ToolAddCreativeAssets])
	})

	t.Run(`empty settings check`, func(t *testing.T) {
		i := impl{settingsStore: &fakeSettingsStore{}}
		policy, err := i.GetPolicy("t1")
		require.Nil(t, policy)
		require.Equal(t, ErrPolicyNotFound, errors.Cause(err))
	})

	t.Run(`store error check`, func(t *testing.T) {
		i := impl{settingsStore: &fakeSettingsStore{listErr: errors.New("db down")}}
		policy, err := i.GetPolicy("t1")
		require.Nil(t, policy)
		require.NotNil(t, err)
	})
}

func TestCreateTenant(t *testing.T) {
	t.Run(`default settings seeded check`, func(t *testing.T) {
		settings := &fakeSettingsStore{}
		i := impl{
			store:         &fakeTenantStore{},
			settingsStore: settings,
		}
		id, err := i.Create("Рога и Копыта", "ext-1")
		require.Nil(t, err)
		require.Equal(t, "tenant-1", id)
		require.Len(t, settings.saved, len(models.DefaultTenantSettings))
		codes := map[models.TenantSettingCode]bool{}
		for _, rec := range settings.saved {
			require.Equal(t, "tenant-1", rec.TenantID)
			codes[rec.Code] = true
		}
		for code := range models.DefaultTenantSettings {
			require.Equal(t, true, codes[code])
		}
	})

	t.Run(`store error check`, func(t *testing.T) {
		i := impl{
			store:         &fakeTenantStore{createErr: errors.New("db down")},
			settingsStore: &fakeSettingsStore{},
		}
		id, err := i.Create("Рога и Копыта", "ext-1")
		require.NotNil(t, err)
		require.Equal(t, "", id)
	})
}

type fakeTenantStore struct {
	createErr error
	created   []dbmodels.Tenant
}

func (f *fakeTenantStore) Create(rec dbmodels.Tenant) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, rec)
	return "tenant-1", nil
}

func (f *fakeTenantStore) GetByID(id string) (*dbmodels.Tenant, error) {
	return nil, nil
}

func (f *fakeTenantStore) List() ([]dbmodels.Tenant, error) {
	return f.created, nil
}

func (f *fakeTenantStore) Update(id string, updMap map[string]interface{}) error {
	return nil
}

type fakeSettingsStore struct {
	settings []dbmodels.TenantSetting
	saved    []dbmodels.TenantSetting
	listErr  error
}

func (f *fakeSettingsStore) Save(rec dbmodels.TenantSetting) error {
	f.saved = append(f.saved, rec)
	return nil
}

func (f *fakeSettingsStore) Update(tenantID string, code models.TenantSettingCode, value string) error {
	return nil
}

func (f *fakeSettingsStore) List(tenantID string) ([]dbmodels.TenantSetting, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.settings, nil
}

func (f *fakeSettingsStore) GetValueByCode(tenantID string, code models.TenantSettingCode) (string, error) {
	return "", nil
}

func (f *fakeSettingsStore) Delete(tenantID string, code models.TenantSettingCode) error {
	return nil
}
