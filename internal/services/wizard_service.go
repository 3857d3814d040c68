package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/automas/booking-engine/internal/apperr"
	"github.com/automas/booking-engine/internal/models"
	"github.com/automas/booking-engine/pkg/validator"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// VehicleResolver validates vehicle input and looks the vehicle up
type VehicleResolver interface {
	ValidateInput(plate string, holder models.Holder) (string, models.Holder, error)
	Resolve(ctx context.Context, plate string, holder models.Holder) (Result[models.VehicleProfile], error)
}

// CatalogProvider lists services and provider locations
type CatalogProvider interface {
	ListServices(ctx context.Context, vertical models.Vertical, group string, vehicle models.VehicleProfile) ([]models.ServiceOffering, error)
	ListLocations(ctx context.Context, vertical models.Vertical, city string, serviceID *int) ([]models.ProviderLocation, error)
}

// SlotProvider lists bookable slots
type SlotProvider interface {
	AvailableSlots(ctx context.Context, vertical models.Vertical, location, service string, day models.Day) Result[[]string]
}

// BookingQuoter quotes and reserves bookings
type BookingQuoter interface {
	Quote(ctx context.Context, req models.BookingRequest) Result[models.Quote]
	Reserve(ctx context.Context, req models.BookingRequest) Result[models.Reservation]
}

// PaymentInitiator starts payments
type PaymentInitiator interface {
	Initiate(ctx context.Context, req InitiateRequest) (*models.PaymentSession, error)
}

// WizardSession is one customer's walk through the booking funnel.
// Steps run one at a time under mu.
type WizardSession struct {
	ID        uuid.UUID
	Vertical  models.Vertical
	CreatedAt time.Time

	mu   sync.Mutex
	next models.WizardStep

	customer        models.Customer
	plate           string
	vehicle         *models.VehicleProfile
	vehicleFallback FallbackReason
	services        []models.ServiceOffering
	service         *models.ServiceOffering
	city            string
	locations       []models.ProviderLocation
	location        *models.ProviderLocation
	day             models.Day
	slot            string
	listedDay       models.Day
	listedSlots     []string
	quote           *models.Quote
	quoteFallback   FallbackReason
	reservation     *models.Reservation
	coupon          *models.CouponResult
	payment         *models.PaymentSession

	lastSeen atomic.Int64
	ctx      context.Context
	cancel   context.CancelFunc
}

func (w *WizardSession) touch(now time.Time) {
	w.lastSeen.Store(now.UnixNano())
}

func (w *WizardSession) touched() time.Time {
	return time.Unix(0, w.lastSeen.Load())
}

// bind derives a context cancelled by either the request or the session closing
func (w *WizardSession) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(w.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// require fails unless every step before step is complete
func (w *WizardSession) require(step models.WizardStep) error {
	if w.next < step {
		return fmt.Errorf("%w: %s requires %s first", apperr.ErrStepOutOfOrder, step, w.next)
	}
	return nil
}

// complete records step as done and discards the data of every later step
func (w *WizardSession) complete(step models.WizardStep) {
	w.next = step + 1
	if step < models.StepService {
		w.services = nil
		w.service = nil
	}
	if step < models.StepLocation {
		w.city = ""
		w.locations = nil
		w.location = nil
	}
	if step < models.StepSlot {
		w.day = models.Day{}
		w.slot = ""
		w.listedDay = models.Day{}
		w.listedSlots = nil
	}
	if step < models.StepQuote {
		w.quote = nil
		w.quoteFallback = FallbackNone
		w.reservation = nil
	}
	if step < models.StepPayment {
		w.coupon = nil
		w.payment = nil
	}
}

func (w *WizardSession) offered(day models.Day, label string) bool {
	if w.listedDay != day {
		return false
	}
	for _, slot := range w.listedSlots {
		if slot == label {
			return true
		}
	}
	return false
}

func (w *WizardSession) booking() models.BookingRequest {
	req := models.BookingRequest{
		Vertical: w.Vertical,
		Plate:    w.plate,
		Day:      w.day,
		Slot:     w.slot,
		City:     w.city,
		Customer: w.customer,
		Vehicle:  w.vehicle,
	}
	if w.location != nil {
		req.Location = w.location.Name
	}
	if w.service != nil {
		req.ServiceID = w.service.ID
		req.ServiceName = w.service.Name
		req.Price = w.service.Price
	}
	if w.quote != nil {
		req.Price = w.quote.Price
	}
	return req
}

// WizardView is the client-facing snapshot of a session
type WizardView struct {
	ID              uuid.UUID                `json:"id"`
	Vertical        models.Vertical          `json:"vertical"`
	NextStep        models.WizardStep        `json:"next_step"`
	Plate           string                   `json:"plate,omitempty"`
	Customer        *models.Customer         `json:"customer,omitempty"`
	Vehicle         *models.VehicleProfile   `json:"vehicle,omitempty"`
	VehicleFallback FallbackReason           `json:"vehicle_fallback,omitempty"`
	Service         *models.ServiceOffering  `json:"service,omitempty"`
	City            string                   `json:"city,omitempty"`
	Location        *models.ProviderLocation `json:"location,omitempty"`
	Day             string                   `json:"day,omitempty"`
	Slot            string                   `json:"slot,omitempty"`
	Quote           *models.Quote            `json:"quote,omitempty"`
	QuoteFallback   FallbackReason           `json:"quote_fallback,omitempty"`
	Reservation     *models.Reservation      `json:"reservation,omitempty"`
	Coupon          *models.CouponResult     `json:"coupon,omitempty"`
	Payment         *models.PaymentSession   `json:"payment,omitempty"`
}

func (w *WizardSession) view() WizardView {
	v := WizardView{
		ID:              w.ID,
		Vertical:        w.Vertical,
		NextStep:        w.next,
		Plate:           w.plate,
		Vehicle:         w.vehicle,
		VehicleFallback: w.vehicleFallback,
		Service:         w.service,
		City:            w.city,
		Location:        w.location,
		Slot:            w.slot,
		Quote:           w.quote,
		QuoteFallback:   w.quoteFallback,
		Reservation:     w.reservation,
		Coupon:          w.coupon,
		Payment:         w.payment,
	}
	if w.next > models.StepVehicle {
		customer := w.customer
		v.Customer = &customer
	}
	if !w.day.IsZero() {
		v.Day = w.day.String()
	}
	return v
}

// WizardService drives wizard sessions for every vertical
type WizardService struct {
	store    *WizardStore
	vehicles VehicleResolver
	catalog  CatalogProvider
	slots    SlotProvider
	bookings BookingQuoter
	payments PaymentInitiator
	phones   *validator.PhoneValidator
	logger   *logrus.Logger
	now      func() time.Time
}

// NewWizardService creates a new wizard service
func NewWizardService(
	store *WizardStore,
	vehicles VehicleResolver,
	catalog CatalogProvider,
	slots SlotProvider,
	bookings BookingQuoter,
	payments PaymentInitiator,
	logger *logrus.Logger,
) *WizardService {
	return &WizardService{
		store:    store,
		vehicles: vehicles,
		catalog:  catalog,
		slots:    slots,
		bookings: bookings,
		payments: payments,
		phones:   validator.NewPhoneValidator(),
		logger:   logger,
		now:      time.Now,
	}
}

// Start opens a wizard for a vertical
func (s *WizardService) Start(vertical string) (WizardView, error) {
	v, err := models.ParseVertical(strings.ToLower(strings.TrimSpace(vertical)))
	if err != nil {
		return WizardView{}, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}

	session := s.store.Create(v)
	s.logger.WithFields(logrus.Fields{
		"wizard_id": session.ID,
		"vertical":  v,
	}).Info("Wizard started")

	session.mu.Lock()
	defer session.mu.Unlock()
	return session.view(), nil
}

// Get returns the current state of a wizard
func (s *WizardService) Get(id uuid.UUID) (WizardView, error) {
	session, err := s.store.Get(id)
	if err != nil {
		return WizardView{}, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.view(), nil
}

// Close abandons a wizard, cancelling any call in flight
func (s *WizardService) Close(id uuid.UUID) error {
	if !s.store.Close(id) {
		return fmt.Errorf("%w: wizard session %s", apperr.ErrNotFound, id)
	}
	s.logger.WithField("wizard_id", id).Info("Wizard closed")
	return nil
}

// withSession runs fn holding the session lock with a context bound to the session
func (s *WizardService) withSession(ctx context.Context, id uuid.UUID, fn func(ctx context.Context, w *WizardSession) error) (WizardView, error) {
	session, err := s.store.Get(id)
	if err != nil {
		return WizardView{}, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	ctx, cancel := session.bind(ctx)
	defer cancel()

	if err := fn(ctx, session); err != nil {
		return WizardView{}, err
	}
	return session.view(), nil
}

// SubmitVehicle validates the customer and vehicle and resolves the vehicle profile.
// The paperwork vertical validates the plate without a registry lookup.
func (s *WizardService) SubmitVehicle(ctx context.Context, id uuid.UUID, req models.VehicleStepRequest) (WizardView, error) {
	if err := req.Validate(); err != nil {
		return WizardView{}, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}

	return s.withSession(ctx, id, func(ctx context.Context, w *WizardSession) error {
		if err := w.require(models.StepVehicle); err != nil {
			return err
		}

		plate, holder, err := s.vehicles.ValidateInput(req.Plate, models.Holder{IDType: req.HolderIDType, ID: req.HolderID})
		if err != nil {
			return err
		}
		customer, err := s.validateCustomer(req, holder)
		if err != nil {
			return err
		}

		var vehicle *models.VehicleProfile
		fallback := FallbackNone
		if w.Vertical.UsesRegistry() {
			res, err := s.vehicles.Resolve(ctx, plate, holder)
			if err != nil {
				return err
			}
			vehicle = &res.Value
			fallback = res.Fallback
		}

		w.complete(models.StepVehicle)
		w.plate = plate
		w.customer = customer
		w.vehicle = vehicle
		w.vehicleFallback = fallback
		return nil
	})
}

func (s *WizardService) validateCustomer(req models.VehicleStepRequest, holder models.Holder) (models.Customer, error) {
	name, err := validator.ValidateName(req.Name)
	if err != nil {
		return models.Customer{}, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	phone, err := s.phones.Validate(req.Phone)
	if err != nil {
		return models.Customer{}, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	email, err := validator.ValidateEmail(req.Email)
	if err != nil {
		return models.Customer{}, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	return models.Customer{Name: name, Phone: phone, Email: email, Holder: holder}, nil
}

// ServiceOption is an offering decorated for the services step
type ServiceOption struct {
	models.ServiceOffering
	Plan   string `json:"plan,omitempty"`
	Tab    string `json:"tab"`
	AtHome bool   `json:"at_home"`
}

// ListServices returns the offerings for the session's vehicle
func (s *WizardService) ListServices(ctx context.Context, id uuid.UUID, group string) ([]ServiceOption, error) {
	var options []ServiceOption
	_, err := s.withSession(ctx, id, func(ctx context.Context, w *WizardSession) error {
		if err := w.require(models.StepService); err != nil {
			return err
		}

		vehicle := models.VehicleProfile{Plate: w.plate}
		if w.vehicle != nil {
			vehicle = *w.vehicle
		}

		services, err := s.catalog.ListServices(ctx, w.Vertical, group, vehicle)
		if err != nil {
			return err
		}
		w.services = services

		options = make([]ServiceOption, 0, len(services))
		for _, svc := range services {
			tab := vehicle.Category()
			if svc.AtHome() {
				tab = "domicilio"
			}
			options = append(options, ServiceOption{
				ServiceOffering: svc,
				Plan:            svc.Plan(),
				Tab:             tab,
				AtHome:          svc.AtHome(),
			})
		}
		return nil
	})
	return options, err
}

// SelectService picks one of the listed offerings
func (s *WizardService) SelectService(ctx context.Context, id uuid.UUID, serviceID int) (WizardView, error) {
	return s.withSession(ctx, id, func(ctx context.Context, w *WizardSession) error {
		if err := w.require(models.StepService); err != nil {
			return err
		}

		for _, svc := range w.services {
			if svc.ID == serviceID {
				selected := svc
				w.complete(models.StepService)
				w.service = &selected
				return nil
			}
		}
		return fmt.Errorf("%w: service %d is not offered for this vehicle", apperr.ErrValidation, serviceID)
	})
}

// ListLocations returns the locations of a city offering the selected service,
// nearest first when the customer's position is known
func (s *WizardService) ListLocations(ctx context.Context, id uuid.UUID, city string, origin *models.Coordinates) ([]models.RankedLocation, error) {
	var ranked []models.RankedLocation
	_, err := s.withSession(ctx, id, func(ctx context.Context, w *WizardSession) error {
		if err := w.require(models.StepLocation); err != nil {
			return err
		}

		var serviceID *int
		if w.service != nil {
			sid := w.service.ID
			serviceID = &sid
		}

		locations, err := s.catalog.ListLocations(ctx, w.Vertical, city, serviceID)
		if err != nil {
			return err
		}

		if city = strings.TrimSpace(city); city != w.city && w.next > models.StepLocation {
			w.complete(models.StepService)
		}
		w.city = city
		w.locations = locations
		ranked = RankLocations(locations, origin)
		return nil
	})
	return ranked, err
}

// SelectLocation picks one of the listed locations
func (s *WizardService) SelectLocation(ctx context.Context, id uuid.UUID, locationID int) (WizardView, error) {
	return s.withSession(ctx, id, func(ctx context.Context, w *WizardSession) error {
		if err := w.require(models.StepLocation); err != nil {
			return err
		}

		for _, loc := range w.locations {
			if loc.ID == locationID {
				selected := loc
				w.complete(models.StepLocation)
				w.location = &selected
				return nil
			}
		}
		return fmt.Errorf("%w: location %d is not available", apperr.ErrValidation, locationID)
	})
}

// NearbyLocations suggests other locations of the selected location's city
func (s *WizardService) NearbyLocations(id uuid.UUID, limit int) ([]models.ProviderLocation, error) {
	session, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()

	if session.location == nil {
		return nil, fmt.Errorf("%w: no location selected", apperr.ErrStepOutOfOrder)
	}
	return NearbyLocations(session.locations, *session.location, limit), nil
}

// SlotOptions is the slot listing of a day
type SlotOptions struct {
	Day      string         `json:"day"`
	Slots    []string       `json:"slots"`
	Fallback FallbackReason `json:"fallback,omitempty"`
}

// ListSlots returns the bookable slots of a day at the selected location
func (s *WizardService) ListSlots(ctx context.Context, id uuid.UUID, date string) (SlotOptions, error) {
	day, err := models.ParseDay(date)
	if err != nil {
		return SlotOptions{}, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}

	var options SlotOptions
	_, err = s.withSession(ctx, id, func(ctx context.Context, w *WizardSession) error {
		if err := w.require(models.StepSlot); err != nil {
			return err
		}
		if err := s.checkDay(day); err != nil {
			return err
		}

		res := s.slots.AvailableSlots(ctx, w.Vertical, w.location.Name, w.serviceName(), day)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		options = SlotOptions{Day: day.String(), Slots: res.Value, Fallback: res.Fallback}
		w.listedDay = day
		w.listedSlots = res.Value
		return nil
	})
	return options, err
}

// SelectSlot picks the day and time label. The label must come from the last listing of
// that day, except the to-be-confirmed placeholder which is always accepted.
func (s *WizardService) SelectSlot(ctx context.Context, id uuid.UUID, req models.SelectSlotRequest) (WizardView, error) {
	day, err := models.ParseDay(req.Date)
	if err != nil {
		return WizardView{}, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	label := strings.TrimSpace(req.Label)
	if label == "" {
		return WizardView{}, fmt.Errorf("%w: slot label is required", apperr.ErrValidation)
	}

	return s.withSession(ctx, id, func(ctx context.Context, w *WizardSession) error {
		if err := w.require(models.StepSlot); err != nil {
			return err
		}
		if err := s.checkDay(day); err != nil {
			return err
		}
		if label != models.SlotToBeConfirmed && !w.offered(day, label) {
			return fmt.Errorf("%w: slot %q is not offered on %s", apperr.ErrValidation, label, day)
		}

		w.complete(models.StepSlot)
		w.day = day
		w.slot = label
		return nil
	})
}

// Quote prices the booking and, unless the vertical defers it, reserves the slot
func (s *WizardService) Quote(ctx context.Context, id uuid.UUID) (WizardView, error) {
	return s.withSession(ctx, id, func(ctx context.Context, w *WizardSession) error {
		if err := w.require(models.StepQuote); err != nil {
			return err
		}

		booking := w.booking()
		quote := s.bookings.Quote(ctx, booking)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var reservation *models.Reservation
		if !w.Vertical.DefersReservation() {
			booking.Price = quote.Value.Price
			res := s.bookings.Reserve(ctx, booking)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			reservation = &res.Value
		}

		w.complete(models.StepQuote)
		w.quote = &quote.Value
		w.quoteFallback = quote.Fallback
		w.reservation = reservation
		return nil
	})
}

// ApplyCoupon validates a coupon against the quoted price. Invalid coupons are
// reported in the result and clear any coupon applied before.
func (s *WizardService) ApplyCoupon(ctx context.Context, id uuid.UUID, code string) (models.CouponResult, error) {
	var result models.CouponResult
	_, err := s.withSession(ctx, id, func(ctx context.Context, w *WizardSession) error {
		if err := w.require(models.StepPayment); err != nil {
			return err
		}
		if w.next > models.StepPayment {
			return fmt.Errorf("%w: payment already started", apperr.ErrStepOutOfOrder)
		}

		result = ValidateCoupon(code, w.quote.Price)
		if result.Valid {
			w.coupon = &result
		} else {
			w.coupon = nil
		}
		return nil
	})
	return result, err
}

// Pay starts the payment and hands the customer off to the gateway.
// sessionID is the browser session the outcome pages will be read with.
func (s *WizardService) Pay(ctx context.Context, id uuid.UUID, sessionID string, req models.PayRequest, client ClientInfo) (WizardView, error) {
	return s.withSession(ctx, id, func(ctx context.Context, w *WizardSession) error {
		if err := w.require(models.StepPayment); err != nil {
			return err
		}
		if w.next > models.StepPayment && w.payment != nil {
			return fmt.Errorf("%w: payment already started", apperr.ErrStepOutOfOrder)
		}

		initiate := InitiateRequest{
			SessionID:     sessionID,
			AcceptedTerms: req.AcceptedTerms,
			PaymentMethod: req.PaymentMethod,
			Booking:       w.booking(),
			Reservation:   w.reservation,
			BaseAmount:    w.quote.Price,
			Client:        client,
		}
		if w.coupon != nil {
			initiate.CouponCode = w.coupon.Code
		}

		payment, err := s.payments.Initiate(ctx, initiate)
		if err != nil {
			return err
		}

		w.complete(models.StepPayment)
		w.payment = payment

		s.logger.WithFields(logrus.Fields{
			"wizard_id":  w.ID,
			"payment_id": payment.PaymentID,
			"total":      payment.Total,
		}).Info("Customer handed off to payment gateway")
		return nil
	})
}

// ExpireIdle closes idle sessions
func (s *WizardService) ExpireIdle() int {
	n := s.store.ExpireIdle()
	if n > 0 {
		s.logger.WithField("expired", n).Info("Idle wizard sessions expired")
	}
	return n
}

func (s *WizardService) checkDay(day models.Day) error {
	today := models.DayOf(s.now())
	if day.String() < today.String() {
		return fmt.Errorf("%w: date %s is in the past", apperr.ErrValidation, day)
	}
	return nil
}

func (w *WizardSession) serviceName() string {
	if w.service == nil {
		return ""
	}
	return w.service.Name
}
