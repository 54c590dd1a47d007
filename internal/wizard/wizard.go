package wizard

import (
	"context"
	"sync"

	"trading-core-go/internal/backend"
	"trading-core-go/internal/models"
	"trading-core-go/internal/portfolio"
	"trading-core-go/internal/store"
	"trading-core-go/internal/validate"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// State is one step of the transaction wizard.
type State string

const (
	StateSelectAsset      State = "SELECT_ASSET"
	StateEnterDetails     State = "ENTER_DETAILS"
	StateConfirm          State = "CONFIRM"
	StateFeeAuthorization State = "FEE_AUTHORIZATION"
	StateSuccess          State = "SUCCESS"
	StateClosed           State = "CLOSED"
)

// Messages owned by the engine.
const (
	MsgSelectAsset      = "Select an asset"
	MsgSubmissionFailed = "Something went wrong. Please try again."
)

// Flow supplies the operation-specific behaviour of one wizard instance:
// its validator, its optimistic balance delta, and its terminal submission
// call. One implementation exists per operation type.
type Flow interface {
	Operation() models.OperationType
	// Validate composes the balance check with operation-specific rules.
	// It must be pure: no network calls, cache reads only.
	Validate(draft *models.TransactionDraft, holdings *models.Holdings, displayCurrency string) validate.FieldErrors
	// Delta is the locally assumed balance change for an accepted submission.
	Delta(draft *models.TransactionDraft, displayCurrency string) portfolio.Delta
	// Submit performs the backend call. A nil receipt with nil error means
	// the flow still needs fee authorization before completing.
	Submit(ctx context.Context, draft *models.TransactionDraft, displayCurrency string) (*models.Receipt, error)
}

// FeeAuthorizer is implemented by flows with a fee-acknowledgment step
// between CONFIRM and SUCCESS (withdrawals).
type FeeAuthorizer interface {
	Authorize(ctx context.Context, draft *models.TransactionDraft, paymentMethod string) (*models.Receipt, error)
	PendingFees() *models.FeeBreakdown
}

// Callbacks let the embedding view react to terminal wizard events.
type Callbacks struct {
	// OnSuccess fires after a receipt is recorded, before Done is pressed.
	OnSuccess func(receipt *models.Receipt)
	// OnClose fires exactly once when the wizard closes. refresh is true
	// when a successful operation means balances should be refetched.
	OnClose func(refresh bool)
}

// Options tune a wizard instance.
type Options struct {
	// EligibleAssets preselects the asset and skips SELECT_ASSET when only
	// one asset is eligible for the operation.
	EligibleAssets []string
	// DisplayCurrency is the user's preferred currency for amount entry.
	DisplayCurrency string
}

// Wizard is the generic multi-step state machine every operation type
// instantiates. Transitions are strictly sequential within one instance; a
// Confirm while one is in flight is a no-op.
type Wizard struct {
	mu sync.Mutex

	flow      Flow
	tracker   *portfolio.Tracker
	journal   store.ReceiptJournal // optional
	callbacks Callbacks

	displayCurrency string
	initialState    State

	state       State
	draft       models.TransactionDraft
	fieldErrors validate.FieldErrors
	receipt     *models.Receipt
	inFlight    bool
	succeeded   bool
	closed      bool
}

func New(flow Flow, tracker *portfolio.Tracker, journal store.ReceiptJournal, opts Options, callbacks Callbacks) *Wizard {
	w := &Wizard{
		flow:            flow,
		tracker:         tracker,
		journal:         journal,
		callbacks:       callbacks,
		displayCurrency: opts.DisplayCurrency,
		initialState:    StateSelectAsset,
		fieldErrors:     validate.FieldErrors{},
		draft: models.TransactionDraft{
			OperationType:      flow.Operation(),
			AmountDenomination: models.DenominationDisplayCurrency,
		},
	}

	if len(opts.EligibleAssets) == 1 {
		w.draft.AssetSymbol = opts.EligibleAssets[0]
		w.initialState = StateEnterDetails
	}
	w.state = w.initialState

	return w
}

// State returns the current wizard step.
func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Draft returns a copy of the current draft.
func (w *Wizard) Draft() models.TransactionDraft {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft
}

// Errors returns the current field-level error map.
func (w *Wizard) Errors() validate.FieldErrors {
	w.mu.Lock()
	defer w.mu.Unlock()

	errs := validate.FieldErrors{}
	for field, msg := range w.fieldErrors {
		errs[field] = msg
	}
	return errs
}

// Receipt returns the recorded receipt once the wizard reaches SUCCESS.
func (w *Wizard) Receipt() *models.Receipt {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.receipt
}

// PendingFees exposes the fee breakdown awaiting authorization, nil unless
// the flow has a fee-authorization step that has been reached.
func (w *Wizard) PendingFees() *models.FeeBreakdown {
	if authorizer, ok := w.flow.(FeeAuthorizer); ok {
		return authorizer.PendingFees()
	}
	return nil
}

// revalidate reruns the composed validator against the current overlay view.
// Called on every draft mutation to drive live error display.
func (w *Wizard) revalidate() {
	if w.state != StateEnterDetails {
		return
	}
	w.fieldErrors = w.flow.Validate(&w.draft, w.tracker.View(), w.displayCurrency)
}

// SetAsset updates the source asset and re-runs validation.
func (w *Wizard) SetAsset(symbol string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft.AssetSymbol = symbol
	delete(w.fieldErrors, validate.FieldAsset)
	w.revalidate()
}

// SetCounterAsset updates the conversion target asset.
func (w *Wizard) SetCounterAsset(symbol string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft.CounterAssetSymbol = symbol
	w.revalidate()
}

// SetAmount updates the amount and re-runs validation.
func (w *Wizard) SetAmount(amount decimal.Decimal, denomination models.AmountDenomination) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft.Amount = amount
	w.draft.AmountDenomination = denomination
	w.revalidate()
}

// SetDestination updates the transfer/withdrawal destination.
func (w *Wizard) SetDestination(destination string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft.Destination = destination
	w.revalidate()
}

// SetWithdrawalMethod updates the withdrawal method.
func (w *Wizard) SetWithdrawalMethod(method string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft.WithdrawalMethod = method
	w.revalidate()
}

// SetMemo updates the optional memo.
func (w *Wizard) SetMemo(memo string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft.Memo = memo
}

// Continue advances from SELECT_ASSET or ENTER_DETAILS.
func (w *Wizard) Continue() {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state {
	case StateSelectAsset:
		if w.draft.AssetSymbol == "" {
			w.fieldErrors = validate.FieldErrors{validate.FieldAsset: MsgSelectAsset}
			return
		}
		w.fieldErrors = validate.FieldErrors{}
		w.state = StateEnterDetails

	case StateEnterDetails:
		errs := w.flow.Validate(&w.draft, w.tracker.View(), w.displayCurrency)
		if !errs.Valid() {
			w.fieldErrors = errs
			return
		}
		w.fieldErrors = validate.FieldErrors{}
		w.state = StateConfirm
	}
}

// Confirm invokes the backend action from the CONFIRM step. A second call
// while one is in flight is a no-op. Entering CONFIRM never mutated any
// balance; only this call may.
func (w *Wizard) Confirm(ctx context.Context) {
	w.mu.Lock()
	if w.state != StateConfirm || w.inFlight {
		w.mu.Unlock()
		return
	}
	w.inFlight = true
	draft := w.draft
	w.mu.Unlock()

	_, authorizes := w.flow.(FeeAuthorizer)
	if !authorizes {
		// The submission is the committing call: apply the optimistic
		// overlay now, reconcile once the backend answers.
		w.tracker.ApplyOptimistic(w.flow.Delta(&draft, w.displayCurrency))
	}

	receipt, err := w.flow.Submit(ctx, &draft, w.displayCurrency)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.inFlight = false

	if err != nil {
		w.failSubmission(ctx, err)
		return
	}

	if receipt == nil && authorizes {
		w.state = StateFeeAuthorization
		return
	}

	w.completeSubmission(ctx, receipt)
}

// Authorize acknowledges the withdrawal fees from FEE_AUTHORIZATION and
// finishes the operation.
func (w *Wizard) Authorize(ctx context.Context, paymentMethod string) {
	authorizer, ok := w.flow.(FeeAuthorizer)
	if !ok {
		return
	}

	w.mu.Lock()
	if w.state != StateFeeAuthorization || w.inFlight {
		w.mu.Unlock()
		return
	}
	w.inFlight = true
	draft := w.draft
	w.mu.Unlock()

	// The authorization is the committing call for fee-authorized flows.
	w.tracker.ApplyOptimistic(w.flow.Delta(&draft, w.displayCurrency))

	receipt, err := authorizer.Authorize(ctx, &draft, paymentMethod)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.inFlight = false

	if err != nil {
		w.failSubmission(ctx, err)
		return
	}

	w.completeSubmission(ctx, receipt)
}

// failSubmission returns control to ENTER_DETAILS with the backend's message
// surfaced on the amount field, and discards the optimistic overlay.
func (w *Wizard) failSubmission(ctx context.Context, err error) {
	zap.L().Warn("Submission failed",
		zap.String("operation", string(w.draft.OperationType)),
		zap.Error(err))

	if reconcileErr := w.tracker.Reconcile(ctx); reconcileErr != nil {
		zap.L().Warn("Holdings reconcile after failure did not complete",
			zap.Error(reconcileErr))
	}

	w.state = StateEnterDetails
	w.fieldErrors = validate.FieldErrors{
		validate.FieldAmount: backend.UserMessage(err, MsgSubmissionFailed),
	}
}

func (w *Wizard) completeSubmission(ctx context.Context, receipt *models.Receipt) {
	if w.journal != nil && receipt != nil {
		if err := w.journal.RecordReceipt(ctx, receipt); err != nil {
			// The operation itself succeeded; a journal failure must not
			// fail the wizard.
			zap.L().Warn("Failed to record receipt", zap.Error(err))
		}
	}

	if err := w.tracker.Reconcile(ctx); err != nil {
		zap.L().Warn("Holdings reconcile after success did not complete",
			zap.Error(err))
	}

	w.receipt = receipt
	w.succeeded = true
	w.state = StateSuccess

	zap.L().Info("Operation submitted",
		zap.String("operation", string(w.draft.OperationType)),
		zap.String("asset", w.draft.AssetSymbol))

	if w.callbacks.OnSuccess != nil && receipt != nil {
		w.callbacks.OnSuccess(receipt)
	}
}

// Back moves to the previous step. At the initial step it closes the wizard.
// It does nothing at SUCCESS; use Done there.
func (w *Wizard) Back() {
	w.mu.Lock()

	if w.inFlight || w.state == StateSuccess || w.state == StateClosed {
		w.mu.Unlock()
		return
	}

	if w.state == w.initialState {
		w.mu.Unlock()
		w.Close()
		return
	}

	switch w.state {
	case StateEnterDetails:
		w.state = StateSelectAsset
	case StateConfirm:
		w.state = StateEnterDetails
	case StateFeeAuthorization:
		w.state = StateConfirm
	}
	w.mu.Unlock()
}

// Done closes the wizard from SUCCESS and signals the caller to refresh
// balance and holdings.
func (w *Wizard) Done() {
	w.mu.Lock()
	if w.state != StateSuccess {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()
	w.Close()
}

// Close discards the draft and releases the wizard. Safe to call from any
// state; fires OnClose exactly once.
func (w *Wizard) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.state = StateClosed
	w.draft = models.TransactionDraft{}
	refresh := w.succeeded
	w.mu.Unlock()

	if w.callbacks.OnClose != nil {
		w.callbacks.OnClose(refresh)
	}
}
