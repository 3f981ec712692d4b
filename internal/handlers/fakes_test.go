package handlers

import (
	"context"
	"time"

	"github.com/NomanAhmed1999/vatika/internal/domain"
	"github.com/NomanAhmed1999/vatika/internal/services"
)

type fakeWizardService struct {
	session       domain.WizardSession
	advanceResult services.AdvanceResult
	lastUpdate    services.UpdateFieldsCommand
	lastStep      services.StepCommand
	err           error
}

func (s *fakeWizardService) CreateSession(context.Context) (domain.WizardSession, error) {
	return s.session, s.err
}

func (s *fakeWizardService) GetSession(_ context.Context, sessionID string) (domain.WizardSession, error) {
	if s.err != nil {
		return domain.WizardSession{}, s.err
	}
	return s.session, nil
}

func (s *fakeWizardService) UpdateFields(_ context.Context, cmd services.UpdateFieldsCommand) (domain.WizardSession, error) {
	s.lastUpdate = cmd
	if s.err != nil {
		return domain.WizardSession{}, s.err
	}
	return s.session, nil
}

func (s *fakeWizardService) Advance(_ context.Context, cmd services.StepCommand) (services.AdvanceResult, error) {
	s.lastStep = cmd
	if s.err != nil {
		return services.AdvanceResult{}, s.err
	}
	return s.advanceResult, nil
}

func (s *fakeWizardService) Retreat(_ context.Context, cmd services.StepCommand) (domain.WizardSession, error) {
	s.lastStep = cmd
	if s.err != nil {
		return domain.WizardSession{}, s.err
	}
	return s.session, nil
}

func (s *fakeWizardService) Reset(_ context.Context, cmd services.StepCommand) (domain.WizardSession, error) {
	s.lastStep = cmd
	if s.err != nil {
		return domain.WizardSession{}, s.err
	}
	return s.session, nil
}

type fakePhotoService struct {
	session    domain.WizardSession
	lastUpload services.UploadPhotoCommand
	lastCrop   services.CropPhotoCommand
	err        error
}

func (s *fakePhotoService) Upload(_ context.Context, cmd services.UploadPhotoCommand) (domain.WizardSession, error) {
	s.lastUpload = cmd
	if s.err != nil {
		return domain.WizardSession{}, s.err
	}
	return s.session, nil
}

func (s *fakePhotoService) Crop(_ context.Context, cmd services.CropPhotoCommand) (domain.WizardSession, error) {
	s.lastCrop = cmd
	if s.err != nil {
		return domain.WizardSession{}, s.err
	}
	return s.session, nil
}

func (s *fakePhotoService) Process(_ context.Context, cmd services.ProcessPhotoCommand) (domain.WizardSession, error) {
	if s.err != nil {
		return domain.WizardSession{}, s.err
	}
	return s.session, nil
}

type fakeCompositionService struct {
	result  services.CompositionResult
	targets []services.ShareTarget
	err     error
}

func (s *fakeCompositionService) Render(_ context.Context, cmd services.RenderCompositionCommand) (services.CompositionResult, error) {
	if s.err != nil {
		return services.CompositionResult{}, s.err
	}
	return s.result, nil
}

func (s *fakeCompositionService) ShareTargets(_ context.Context, sessionID string) ([]services.ShareTarget, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.targets, nil
}

type fakeOrderService struct {
	lastCommand services.SubmitOrderCommand
	result      services.SubmitOrderResult
	err         error
}

func (s *fakeOrderService) Submit(_ context.Context, cmd services.SubmitOrderCommand) (services.SubmitOrderResult, error) {
	s.lastCommand = cmd
	if s.err != nil {
		return services.SubmitOrderResult{}, s.err
	}
	return s.result, nil
}

type fakeCustomerService struct {
	listResult services.CustomerListResult
	lastQuery  services.CustomerListQuery
	updated    domain.Customer
	lastStatus domain.CustomerStatus
	csv        []byte
	err        error
}

func (s *fakeCustomerService) List(_ context.Context, query services.CustomerListQuery) (services.CustomerListResult, error) {
	s.lastQuery = query
	if s.err != nil {
		return services.CustomerListResult{}, s.err
	}
	return s.listResult, nil
}

func (s *fakeCustomerService) UpdateStatus(_ context.Context, customerID string, status domain.CustomerStatus) (domain.Customer, error) {
	s.lastStatus = status
	if s.err != nil {
		return domain.Customer{}, s.err
	}
	return s.updated, nil
}

func (s *fakeCustomerService) ExportCSV(_ context.Context, query services.CustomerListQuery) ([]byte, error) {
	s.lastQuery = query
	if s.err != nil {
		return nil, s.err
	}
	return s.csv, nil
}

func (s *fakeCustomerService) Counts(context.Context) (domain.CustomerStatusCounts, error) {
	if s.err != nil {
		return domain.CustomerStatusCounts{}, s.err
	}
	return s.listResult.Counts, nil
}

type fakeAdminAuthService struct {
	login     services.LoginResult
	generated services.GeneratedPassword
	err       error
}

func (s *fakeAdminAuthService) Login(_ context.Context, email, password string) (services.LoginResult, error) {
	if s.err != nil {
		return services.LoginResult{}, s.err
	}
	return s.login, nil
}

func (s *fakeAdminAuthService) GeneratePassword(_ context.Context, email string) (services.GeneratedPassword, error) {
	if s.err != nil {
		return services.GeneratedPassword{}, s.err
	}
	return s.generated, nil
}

func testSession() domain.WizardSession {
	return domain.WizardSession{
		ID:        "ws_1",
		Step:      domain.StepNames,
		Revision:  2,
		CreatedAt: time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, time.March, 5, 10, 5, 0, 0, time.UTC),
	}
}
