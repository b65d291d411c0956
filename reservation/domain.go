package reservation

import (
	"errors"
	"sync"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

// ErrSharedCapacity is returned by [Domain.Reserve] when an entry with shared
// intent targets an object whose shared fence set is already full, meaning a
// later Commit could not succeed. The batch has been fully backed off; the
// caller must wait for or flush the object's existing fences before retrying.
var ErrSharedCapacity = errors.New(`reservation: shared fence capacity exhausted`)

type (
	// Domain is a reservation scope: one lock serializing reservation state
	// and fence slots for every [Object] used with it, plus the ticket
	// counter that orders competing batches. Most programs want exactly one.
	//
	// Construct with [NewDomain]; the zero value works but cannot log.
	Domain struct {
		mu sync.Mutex
		// last issued ticket; 0 is never issued, it marks a free object
		seq         uint32
		logger      *logiface.Logger[logiface.Event]
		backoffWarn *catrate.Limiter
	}

	domainOptions struct {
		logger           *logiface.Logger[logiface.Event]
		backoffWarnRates map[time.Duration]int
	}

	// DomainOption configures a [Domain] instance.
	DomainOption interface {
		applyDomain(o *domainOptions)
	}

	domainOptionFunc func(o *domainOptions)
)

func (f domainOptionFunc) applyDomain(o *domainOptions) { f(o) }

// WithLogger sets the domain's logger. Contention is logged at debug level,
// repeated back-off per object at warning level (see
// [WithBackoffWarningRates]), and shared-capacity failures at warning level.
// A nil logger, the default, disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) DomainOption {
	return domainOptionFunc(func(o *domainOptions) {
		o.logger = logger
	})
}

// WithBackoffWarningRates sets the per-object rate limit applied to the
// repeated back-off warning, so reservation ping-pong between batches cannot
// flood the log. The map follows [catrate.NewLimiter]: for each window, the
// maximum number of warnings per object. The default allows one per object
// per second; nil or empty disables the warning entirely.
func WithBackoffWarningRates(rates map[time.Duration]int) DomainOption {
	return domainOptionFunc(func(o *domainOptions) {
		o.backoffWarnRates = rates
	})
}

// NewDomain returns a reservation domain.
func NewDomain(opts ...DomainOption) *Domain {
	o := domainOptions{
		backoffWarnRates: map[time.Duration]int{time.Second: 1},
	}
	for _, opt := range opts {
		opt.applyDomain(&o)
	}
	x := &Domain{logger: o.logger}
	if o.logger != nil && len(o.backoffWarnRates) != 0 {
		x.backoffWarn = catrate.NewLimiter(o.backoffWarnRates)
	}
	return x
}

// caller holds mu; 0 is reserved as the free marker
func (x *Domain) nextTicketLocked() uint32 {
	x.seq++
	if x.seq == 0 {
		x.seq = 1
	}
	return x.seq
}

// logs a reservation collision, rate-limiting the per-object warning
func (x *Domain) logContention(obj *Object, ticket, holder uint32, backoff bool) {
	if b := x.logger.Debug(); b.Enabled() {
		b.Uint64(`ticket`, uint64(ticket)).
			Uint64(`holder`, uint64(holder)).
			Bool(`backoff`, backoff).
			Log(`reservation: contended object`)
	}
	if backoff && x.backoffWarn != nil {
		if _, ok := x.backoffWarn.Allow(obj); ok {
			x.logger.Warning().
				Uint64(`ticket`, uint64(ticket)).
				Uint64(`holder`, uint64(holder)).
				Log(`reservation: repeated back-off`)
		}
	}
}
