package auth

import (
	"context"

	"github.com/go-kit/kit/metrics"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	"github.com/gogo/protobuf/proto"
	"github.com/loomnetwork/go-loom"
	loomauth "github.com/loomnetwork/go-loom/auth"
	"github.com/loomnetwork/go-loom/types"
	"github.com/loomnetwork/go-loom/util"
	"github.com/pkg/errors"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/ed25519"

	"github.com/loomnetwork/memberapproval"
	"github.com/loomnetwork/memberapproval/state"
	"github.com/loomnetwork/memberapproval/store"
)

var (
	nonceErrorCount metrics.Counter
)

func init() {
	nonceErrorCount = kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Namespace: "memberapproval",
		Subsystem: "middleware",
		Name:      "nonce_error",
		Help:      "Number of invalid nonces.",
	}, []string{})
}

// SignedTx carries the inner tx bytes along with an ed25519 signature over them.
type SignedTx = types.SignedTx

// NonceTx carries the inner tx bytes along with the sender's next sequence number.
type NonceTx = types.NonceTx

// Signer is the go-loom signer interface, re-exported so callers don't need both packages.
type Signer = loomauth.Signer

func NewEd25519Signer(privateKey []byte) Signer {
	return loomauth.NewEd25519Signer(privateKey)
}

func SignTx(signer Signer, txBytes []byte) *SignedTx {
	return loomauth.SignTx(signer, txBytes)
}

type contextKey string

func (c contextKey) String() string {
	return "auth " + string(c)
}

var (
	ContextKeyOrigin = contextKey("origin")
)

// Origin returns the address of the account that signed the tx, or an empty address if the tx
// wasn't signed.
func Origin(ctx context.Context) loom.Address {
	origin, _ := ctx.Value(ContextKeyOrigin).(loom.Address)
	return origin
}

func WithOrigin(ctx context.Context, origin loom.Address) context.Context {
	return context.WithValue(ctx, ContextKeyOrigin, origin)
}

func GetOrigin(tx *SignedTx, chainID string) (loom.Address, error) {
	if len(tx.PublicKey) != ed25519.PublicKeySize {
		return loom.Address{}, errors.New("invalid public key length")
	}

	if len(tx.Signature) != ed25519.SignatureSize {
		return loom.Address{}, errors.New("invalid signature ed25519 signature size length")
	}

	if !ed25519.Verify(tx.PublicKey, tx.Inner, tx.Signature) {
		return loom.Address{}, errors.New("invalid signature ed25519 verify")
	}

	return loom.Address{
		ChainID: chainID,
		Local:   loom.LocalAddressFromPublicKey(tx.PublicKey),
	}, nil
}

var SignatureTxMiddleware = memberapproval.TxMiddlewareFunc(func(
	s state.State,
	txBytes []byte,
	next memberapproval.TxHandlerFunc,
) (memberapproval.TxHandlerResult, error) {
	var r memberapproval.TxHandlerResult

	var tx SignedTx
	if err := proto.Unmarshal(txBytes, &tx); err != nil {
		return r, errors.Wrap(err, "failed to decode signed tx")
	}

	origin, err := GetOrigin(&tx, s.Block().ChainID)
	if err != nil {
		return r, err
	}

	return next(s.WithContext(WithOrigin(s.Context(), origin)), tx.Inner)
})

func nonceKey(addr loom.Address) []byte {
	return util.PrefixKey([]byte("nonce"), addr.Bytes())
}

// Nonce returns the sequence number of the last tx committed by the account.
func Nonce(s store.KVReader, addr loom.Address) uint64 {
	return memberapproval.NewSequence(nonceKey(addr)).Value(s)
}

// NonceTxMiddleware rejects txs whose sequence number isn't exactly one more than the last one
// committed by the origin. The nonce is bumped in the tx state, so failed txs don't consume it.
var NonceTxMiddleware = memberapproval.TxMiddlewareFunc(func(
	s state.State,
	txBytes []byte,
	next memberapproval.TxHandlerFunc,
) (memberapproval.TxHandlerResult, error) {
	var r memberapproval.TxHandlerResult
	origin := Origin(s.Context())
	if origin.IsEmpty() {
		return r, errors.New("transaction has no origin [nonce]")
	}

	var tx NonceTx
	if err := proto.Unmarshal(txBytes, &tx); err != nil {
		return r, errors.Wrap(err, "failed to decode nonce tx")
	}

	seq := memberapproval.NewSequence(nonceKey(origin)).Next(s)
	if tx.Sequence != seq {
		nonceErrorCount.Add(1)
		return r, errors.Errorf("sequence number does not match expected %d got %d", seq, tx.Sequence)
	}

	return next(s, tx.Inner)
})
