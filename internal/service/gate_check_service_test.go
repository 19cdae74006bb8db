package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sitelink-data/internal/domain"
	"sitelink-data/internal/repository"
)

const testTenant = "11111111-1111-1111-1111-111111111111"

type gateCheckFixture struct {
	lotsRepo      *repository.MemoryLotsRepository
	itemsRepo     *repository.MemoryHouseItemsRepository
	checksRepo    *repository.MemoryGateChecksRepository
	templatesRepo *repository.MemoryTemplatesRepository
	service       GateCheckService
	lotID         string
}

func newGateCheckFixture(t *testing.T) *gateCheckFixture {
	f := &gateCheckFixture{
		lotsRepo:      repository.NewMemoryLotsRepository(),
		itemsRepo:     repository.NewMemoryHouseItemsRepository(),
		checksRepo:    repository.NewMemoryGateChecksRepository(),
		templatesRepo: repository.NewMemoryTemplatesRepository(),
	}
	f.service = NewGateCheckService(f.checksRepo, f.templatesRepo, f.lotsRepo, f.itemsRepo, nil, nil, zap.NewNop())

	lotID, err := f.lotsRepo.CreateLot(context.Background(), testTenant, &domain.Lot{
		JobsiteID: "22222222-2222-2222-2222-222222222222",
		LotNumber: "L-101",
		Status:    domain.LotPending,
	})
	require.NoError(t, err)
	f.lotID = lotID

	return f
}

func (f *gateCheckFixture) start(t *testing.T, transition domain.Transition) (*domain.GateCheck, []*domain.GateCheckItem) {
	check, items, err := f.service.Start(context.Background(), StartGateCheckRequest{
		TenantID:   testTenant,
		LotID:      f.lotID,
		Transition: transition,
		CheckedBy:  "inspector-1",
	})
	require.NoError(t, err)
	return check, items
}

func (f *gateCheckFixture) recordAll(t *testing.T, items []*domain.GateCheckItem, result domain.ItemResult) {
	for _, item := range items {
		_, err := f.service.RecordItemResult(context.Background(), RecordItemResultRequest{
			TenantID: testTenant,
			ItemID:   item.GateCheckItemID,
			Result:   result,
		})
		require.NoError(t, err)
	}
}

func TestStart_SnapshotsTemplate(t *testing.T) {
	f := newGateCheckFixture(t)

	check, items, err := f.service.Start(context.Background(), StartGateCheckRequest{
		TenantID:   testTenant,
		LotID:      f.lotID,
		Transition: domain.TransitionFramingToRoofing,
		CheckedBy:  "inspector-1",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.GateCheckInProgress, check.Status)
	require.Len(t, items, 16)
	for i, item := range items {
		assert.Equal(t, i+1, item.SortOrder)
		assert.Equal(t, domain.ResultPending, item.Result)
		assert.NotEmpty(t, item.ItemCode)
	}
	assert.Equal(t, "anchor_bolts", items[0].ItemCode)
	assert.Equal(t, "debris_clear", items[15].ItemCode)
}

func TestStart_EmptyTemplateRejected(t *testing.T) {
	f := newGateCheckFixture(t)
	f.templatesRepo = repository.NewEmptyTemplatesRepository()
	f.service = NewGateCheckService(f.checksRepo, f.templatesRepo, f.lotsRepo, f.itemsRepo, nil, nil, zap.NewNop())

	_, _, err := f.service.Start(context.Background(), StartGateCheckRequest{
		TenantID:   testTenant,
		LotID:      f.lotID,
		Transition: domain.TransitionFramingToRoofing,
		CheckedBy:  "inspector-1",
	})
	assert.ErrorIs(t, err, domain.ErrEmptyTemplate)
}

func TestStart_SecondInFlightRejected(t *testing.T) {
	f := newGateCheckFixture(t)

	f.start(t, domain.TransitionFramingToRoofing)

	_, _, err := f.service.Start(context.Background(), StartGateCheckRequest{
		TenantID:   testTenant,
		LotID:      f.lotID,
		Transition: domain.TransitionFramingToRoofing,
		CheckedBy:  "inspector-2",
	})
	assert.ErrorIs(t, err, domain.ErrGateCheckInFlight)
}

func TestStart_UnknownLot(t *testing.T) {
	f := newGateCheckFixture(t)

	_, _, err := f.service.Start(context.Background(), StartGateCheckRequest{
		TenantID:   testTenant,
		LotID:      "33333333-3333-3333-3333-333333333333",
		Transition: domain.TransitionFramingToRoofing,
		CheckedBy:  "inspector-1",
	})
	assert.ErrorIs(t, err, domain.ErrLotNotFound)
}

func TestComplete_ImmediatelyAfterStart(t *testing.T) {
	f := newGateCheckFixture(t)

	check, _ := f.start(t, domain.TransitionFramingToRoofing)

	// 尚未记录任何结果：全部 pending，不允许完成
	_, err := f.service.Complete(context.Background(), testTenant, check.GateCheckID)
	assert.ErrorIs(t, err, domain.ErrItemsPending)
}

func TestComplete_AllPass(t *testing.T) {
	f := newGateCheckFixture(t)

	check, items := f.start(t, domain.TransitionFramingToRoofing)
	f.recordAll(t, items, domain.ResultPass)

	completed, err := f.service.Complete(context.Background(), testTenant, check.GateCheckID)
	require.NoError(t, err)
	assert.Equal(t, domain.GateCheckPassed, completed.Status)
	require.NotNil(t, completed.CompletedAt)
	require.NotNil(t, completed.ReleasedAt)
}

func TestComplete_BlockingFail(t *testing.T) {
	f := newGateCheckFixture(t)

	check, items := f.start(t, domain.TransitionFramingToRoofing)
	f.recordAll(t, items, domain.ResultPass)

	// anchor_bolts 是阻塞项，改为 fail 后整次检查必然 failed
	_, err := f.service.RecordItemResult(context.Background(), RecordItemResultRequest{
		TenantID: testTenant,
		ItemID:   items[0].GateCheckItemID,
		Result:   domain.ResultFail,
	})
	require.NoError(t, err)

	completed, err := f.service.Complete(context.Background(), testTenant, check.GateCheckID)
	require.NoError(t, err)
	assert.Equal(t, domain.GateCheckFailed, completed.Status)
	require.NotNil(t, completed.CompletedAt)
	assert.Nil(t, completed.ReleasedAt)
}

func TestComplete_NonBlockingFailStillPasses(t *testing.T) {
	f := newGateCheckFixture(t)

	check, items := f.start(t, domain.TransitionFramingToRoofing)
	f.recordAll(t, items, domain.ResultPass)

	// debris_clear 非阻塞：fail 不影响通过
	var debrisID string
	for _, item := range items {
		if item.ItemCode == "debris_clear" {
			debrisID = item.GateCheckItemID
		}
	}
	require.NotEmpty(t, debrisID)
	_, err := f.service.RecordItemResult(context.Background(), RecordItemResultRequest{
		TenantID: testTenant,
		ItemID:   debrisID,
		Result:   domain.ResultFail,
	})
	require.NoError(t, err)

	completed, err := f.service.Complete(context.Background(), testTenant, check.GateCheckID)
	require.NoError(t, err)
	assert.Equal(t, domain.GateCheckPassed, completed.Status)
	require.NotNil(t, completed.ReleasedAt)
}

func TestComplete_BlockingPolicyReadAtCompletion(t *testing.T) {
	f := newGateCheckFixture(t)

	check, items := f.start(t, domain.TransitionFramingToRoofing)
	f.recordAll(t, items, domain.ResultPass)

	var debrisID string
	for _, item := range items {
		if item.ItemCode == "debris_clear" {
			debrisID = item.GateCheckItemID
		}
	}
	_, err := f.service.RecordItemResult(context.Background(), RecordItemResultRequest{
		TenantID: testTenant,
		ItemID:   debrisID,
		Result:   domain.ResultFail,
	})
	require.NoError(t, err)

	// 快照之后模板策略变更：完成判定读模板当前值
	f.templatesRepo.SetBlocking(domain.TransitionFramingToRoofing, "debris_clear", true)

	completed, err := f.service.Complete(context.Background(), testTenant, check.GateCheckID)
	require.NoError(t, err)
	assert.Equal(t, domain.GateCheckFailed, completed.Status)
}

func TestComplete_TerminalCheckImmutable(t *testing.T) {
	f := newGateCheckFixture(t)

	check, items := f.start(t, domain.TransitionFramingToRoofing)
	f.recordAll(t, items, domain.ResultPass)

	_, err := f.service.Complete(context.Background(), testTenant, check.GateCheckID)
	require.NoError(t, err)

	// 终态后重复完成和改结果都被拒绝
	_, err = f.service.Complete(context.Background(), testTenant, check.GateCheckID)
	assert.ErrorIs(t, err, domain.ErrGateCheckDone)

	_, err = f.service.RecordItemResult(context.Background(), RecordItemResultRequest{
		TenantID: testTenant,
		ItemID:   items[0].GateCheckItemID,
		Result:   domain.ResultFail,
	})
	assert.ErrorIs(t, err, domain.ErrGateCheckDone)
}

func TestComplete_FailedCheckAllowsRetry(t *testing.T) {
	f := newGateCheckFixture(t)

	check, items := f.start(t, domain.TransitionFramingToRoofing)
	f.recordAll(t, items, domain.ResultFail)

	completed, err := f.service.Complete(context.Background(), testTenant, check.GateCheckID)
	require.NoError(t, err)
	require.Equal(t, domain.GateCheckFailed, completed.Status)

	// 失败是终态但不是死路：同一过渡点可以开新检查
	retry, retryItems := f.start(t, domain.TransitionFramingToRoofing)
	assert.NotEqual(t, check.GateCheckID, retry.GateCheckID)
	assert.Len(t, retryItems, 16)

	latest, _, err := f.service.GetLatest(context.Background(), testTenant, f.lotID, domain.TransitionFramingToRoofing)
	require.NoError(t, err)
	assert.Equal(t, retry.GateCheckID, latest.GateCheckID)
}

func TestRecordItemResult_RejectsPending(t *testing.T) {
	f := newGateCheckFixture(t)

	_, items := f.start(t, domain.TransitionFramingToRoofing)

	_, err := f.service.RecordItemResult(context.Background(), RecordItemResultRequest{
		TenantID: testTenant,
		ItemID:   items[0].GateCheckItemID,
		Result:   domain.ResultPending,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidItemResult)
}

func TestGetLatest_NoneYet(t *testing.T) {
	f := newGateCheckFixture(t)

	check, items, err := f.service.GetLatest(context.Background(), testTenant, f.lotID, domain.TransitionBackframeToFinal)
	require.NoError(t, err)
	assert.Nil(t, check)
	assert.Nil(t, items)
}
