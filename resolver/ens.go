package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// ENSRegistry is the ENS registry address on Ethereum mainnet.
var ENSRegistry = common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")

// DefaultTimeout bounds every resolution.
const DefaultTimeout = 5 * time.Second

const ensABIJSON = `[
	{"type":"function","name":"resolver","stateMutability":"view","inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"addr","stateMutability":"view","inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"name","stateMutability":"view","inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"text","stateMutability":"view","inputs":[{"name":"node","type":"bytes32"},{"name":"key","type":"string"}],"outputs":[{"name":"","type":"string"}]}
]`

var ensABI = mustParseABI(ensABIJSON)

// textRecordKeys are fetched for profile metadata. Namespaced keys are stored under
// their short name.
var textRecordKeys = map[string]string{
	"avatar":       "avatar",
	"description":  "description",
	"url":          "url",
	"com.twitter":  "twitter",
	"com.github":   "github",
	"com.discord":  "discord",
	"com.telegram": "telegram",
	"com.reddit":   "reddit",
	"com.youtube":  "youtube",
	"email":        "email",
}

var errNoRecord = errors.New("no ENS record")

// ContractCaller is the read-only slice of an Ethereum client the resolver needs.
// *ethclient.Client satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type Options struct {
	Registry common.Address
	Timeout  time.Duration
	Workers  int
	Logger   *zap.Logger
}

// ENSResolver resolves names through the ENS registry over JSON-RPC.
type ENSResolver struct {
	caller   ContractCaller
	cache    *Cache
	registry common.Address
	timeout  time.Duration
	pool     pond.Pool
	log      *zap.Logger
}

// Dial connects to an Ethereum JSON-RPC endpoint.
func Dial(ctx context.Context, rpcURL string, cache *Cache, opts Options) (*ENSResolver, *ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, nil, fmt.Errorf("dial ethereum rpc: %w", err)
	}
	return NewENSResolver(client, cache, opts), client, nil
}

func NewENSResolver(caller ContractCaller, cache *Cache, opts Options) *ENSResolver {
	if opts.Registry == (common.Address{}) {
		opts.Registry = ENSRegistry
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if cache == nil {
		cache = NewCache(DefaultCacheTTL, nil)
	}
	return &ENSResolver{
		caller:   caller,
		cache:    cache,
		registry: opts.Registry,
		timeout:  opts.Timeout,
		pool:     pond.NewPool(opts.Workers),
		log:      opts.Logger.Named("ens"),
	}
}

// Close stops the text record worker pool.
func (r *ENSResolver) Close() {
	r.pool.StopAndWait()
}

// ResolveIdentifier accepts an address or a .eth name. Addresses are checksummed and
// reverse resolved; names are forward resolved.
func (r *ENSResolver) ResolveIdentifier(ctx context.Context, identifier string) Identity {
	identifier = strings.TrimSpace(identifier)
	if IsValidAddress(identifier) {
		address := NormalizeAddress(identifier)
		return Identity{Address: address, ENSDomain: r.ReverseResolve(ctx, address)}
	}

	domain := strings.ToLower(identifier)
	if !IsENSDomain(domain) {
		return Identity{}
	}
	address := r.ResolveName(ctx, domain)
	if address == "" {
		return Identity{}
	}
	return Identity{Address: address, ENSDomain: domain}
}

// ResolveName returns the checksummed address of domain, or "" when it has none.
func (r *ENSResolver) ResolveName(ctx context.Context, domain string) string {
	key := "ens:" + domain
	if v, found, hit := r.cache.Get(ctx, key); hit {
		return valueIf(v, found)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	addr, err := r.resolveAddr(ctx, domain)
	switch {
	case err == nil:
		r.cache.Set(ctx, key, addr.Hex(), true)
		return addr.Hex()
	case errors.Is(err, errNoRecord):
		r.cache.Set(ctx, key, "", false)
	default:
		r.log.Warn("resolve ENS name failed", zap.String("domain", domain), zap.Error(err))
	}
	return ""
}

// ReverseResolve returns the primary ENS name of address, or "" when it has none or
// the name does not resolve back to the address.
func (r *ENSResolver) ReverseResolve(ctx context.Context, address string) string {
	address = NormalizeAddress(address)
	key := "rev:" + address
	if v, found, hit := r.cache.Get(ctx, key); hit {
		return valueIf(v, found)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	name, err := r.lookupName(ctx, common.HexToAddress(address))
	switch {
	case err == nil:
		r.cache.Set(ctx, key, name, true)
		return name
	case errors.Is(err, errNoRecord):
		r.cache.Set(ctx, key, "", false)
	default:
		r.log.Warn("reverse resolve failed", zap.String("address", address), zap.Error(err))
	}
	return ""
}

// Metadata fetches the common text records of domain concurrently.
func (r *ENSResolver) Metadata(ctx context.Context, domain string) Metadata {
	domain = strings.ToLower(strings.TrimSpace(domain))
	key := "meta:" + domain
	if v, found, hit := r.cache.Get(ctx, key); hit {
		md := Metadata{}
		if found {
			_ = json.Unmarshal([]byte(v), &md)
		}
		return md
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	node := Namehash(domain)
	resolverAddr, err := r.resolverOf(ctx, node)
	if err != nil {
		if errors.Is(err, errNoRecord) {
			r.cache.Set(ctx, key, "", false)
		} else {
			r.log.Warn("ENS metadata lookup failed", zap.String("domain", domain), zap.Error(err))
		}
		return Metadata{}
	}

	keys := make([]string, 0, len(textRecordKeys))
	for k := range textRecordKeys {
		keys = append(keys, k)
	}
	values := make([]string, len(keys))
	var failed atomic.Bool

	group := r.pool.NewGroupContext(ctx)
	groupCtx := group.Context()
	for i, k := range keys {
		group.Submit(func() {
			if groupCtx.Err() != nil {
				return
			}
			out, err := r.call(groupCtx, resolverAddr, "text", node, k)
			if err != nil {
				if !errors.Is(err, errNoRecord) {
					failed.Store(true)
				}
				return
			}
			if s, ok := out[0].(string); ok {
				values[i] = s
			}
		})
	}
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		r.log.Warn("ENS text records incomplete", zap.String("domain", domain), zap.Error(err))
	}

	md := Metadata{}
	for i, k := range keys {
		if values[i] != "" {
			md[textRecordKeys[k]] = values[i]
		}
	}
	if failed.Load() {
		return md
	}
	if encoded, err := json.Marshal(md); err == nil {
		r.cache.Set(ctx, key, string(encoded), true)
	}
	return md
}

// AddressMetadata reverse resolves address and returns the name's metadata.
func (r *ENSResolver) AddressMetadata(ctx context.Context, address string) (string, Metadata) {
	domain := r.ReverseResolve(ctx, address)
	if domain == "" {
		return "", Metadata{}
	}
	return domain, r.Metadata(ctx, domain)
}

func (r *ENSResolver) resolveAddr(ctx context.Context, domain string) (common.Address, error) {
	node := Namehash(domain)
	resolverAddr, err := r.resolverOf(ctx, node)
	if err != nil {
		return common.Address{}, err
	}
	out, err := r.call(ctx, resolverAddr, "addr", node)
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := out[0].(common.Address)
	if !ok || addr == (common.Address{}) {
		return common.Address{}, errNoRecord
	}
	return addr, nil
}

func (r *ENSResolver) lookupName(ctx context.Context, addr common.Address) (string, error) {
	reverse := strings.ToLower(strings.TrimPrefix(addr.Hex(), "0x")) + ".addr.reverse"
	node := Namehash(reverse)
	resolverAddr, err := r.resolverOf(ctx, node)
	if err != nil {
		return "", err
	}
	out, err := r.call(ctx, resolverAddr, "name", node)
	if err != nil {
		return "", err
	}
	name, _ := out[0].(string)
	if name == "" {
		return "", errNoRecord
	}

	// A reverse record is only trusted when the name resolves back to the address.
	forward, err := r.resolveAddr(ctx, name)
	if err != nil {
		return "", err
	}
	if forward != addr {
		return "", errNoRecord
	}
	return strings.ToLower(name), nil
}

func (r *ENSResolver) resolverOf(ctx context.Context, node [32]byte) (common.Address, error) {
	out, err := r.call(ctx, r.registry, "resolver", node)
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := out[0].(common.Address)
	if !ok || addr == (common.Address{}) {
		return common.Address{}, errNoRecord
	}
	return addr, nil
}

func (r *ENSResolver) call(ctx context.Context, to common.Address, method string, args ...any) ([]any, error) {
	data, err := ensABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	raw, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, to.Hex(), err)
	}
	if len(raw) == 0 {
		return nil, errNoRecord
	}
	out, err := ensABI.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, errNoRecord
	}
	return out, nil
}

// Namehash computes the EIP-137 node of an ENS name.
func Namehash(name string) [32]byte {
	var node [32]byte
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return node
	}
	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		label := crypto.Keccak256([]byte(labels[i]))
		copy(node[:], crypto.Keccak256(node[:], label))
	}
	return node
}

func valueIf(v string, found bool) string {
	if !found {
		return ""
	}
	return v
}

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("parse ENS ABI: %v", err))
	}
	return parsed
}
