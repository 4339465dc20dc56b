package registry

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/blues/qfround/internal/chain"
	"github.com/blues/qfround/internal/chain/chaintest"
	"github.com/blues/qfround/internal/config"
	"github.com/blues/qfround/internal/docstore"
	"github.com/blues/qfround/internal/logger"
	"github.com/blues/qfround/internal/model"
	"github.com/blues/qfround/internal/scanner"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.SetDefaultLogger(logger.NewNop())
	os.Exit(m.Run())
}

var (
	registryAddr = common.HexToAddress("0x0000000000000000000000000000000000000e01")
	tcrAddr      = common.HexToAddress("0x0000000000000000000000000000000000000e99")
)

const schemaJSON = `{"metadata": {"columns": [
	{"label": "Name", "type": "text"},
	{"label": "Address", "type": "address"},
	{"label": "Image", "type": "image"},
	{"label": "Description", "type": "long text"}
]}}`

type curatedItem struct {
	data   []byte
	status model.CurateItemStatus
}

type fixture struct {
	t           *testing.T
	backend     *chaintest.Backend
	manager     *chain.Manager
	registryABI abi.ABI
	tcrABI      abi.ABI
	items       map[common.Hash]curatedItem
	gateway     *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := chaintest.New()
	manager, err := chain.NewManagerWithBackend(config.ChainConfig{ChainType: "ethereum"}, backend)
	require.NoError(t, err)

	registryABI, err := chain.BuiltinABI(chain.RegistryContract)
	require.NoError(t, err)
	tcrABI, err := chain.BuiltinABI(chain.TCRContract)
	require.NoError(t, err)

	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ipfs/QmRegistration/meta.json":
			_, _ = w.Write([]byte(schemaJSON))
		case "/ipfs/QmClearing/meta.json":
			_, _ = w.Write([]byte(`{"metadata": {"columns": []}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(gateway.Close)

	f := &fixture{
		t:           t,
		backend:     backend,
		manager:     manager,
		registryABI: registryABI,
		tcrABI:      tcrABI,
		items:       make(map[common.Hash]curatedItem),
		gateway:     gateway,
	}

	backend.Returns(registryAddr, registryABI, "tcr", tcrAddr)
	backend.Handle(tcrAddr, tcrABI, "getItemInfo", func(args []interface{}) ([]interface{}, error) {
		item := f.items[common.Hash(args[0].([32]byte))]
		return []interface{}{item.data, uint8(item.status), big.NewInt(1)}, nil
	})
	return f
}

func (f *fixture) withSchema() *fixture {
	f.backend.Emit(tcrAddr, f.tcrABI, "MetaEvidence", 1, big.NewInt(0), "/ipfs/QmRegistration/meta.json")
	f.backend.Emit(tcrAddr, f.tcrABI, "MetaEvidence", 1, big.NewInt(1), "/ipfs/QmClearing/meta.json")
	return f
}

func (f *fixture) reconciler() *Reconciler {
	return NewReconciler(f.manager, scanner.New(f.manager.Backend(), 0), nil,
		docstore.NewClient(config.DocstoreConfig{Timeout: 5}),
		config.RegistryConfig{
			IPFSGateway:     "https://ipfs.io",
			EvidenceGateway: f.gateway.URL,
			CurateURL:       "https://curate.kleros.io",
		}, 0)
}

func itemData(t *testing.T, name string) []byte {
	t.Helper()
	data, err := rlp.EncodeToBytes([][]byte{
		[]byte(name),
		common.HexToAddress("0x00000000000000000000000000000000000000c0").Bytes(),
		[]byte("/ipfs/QmLogo"),
		[]byte(name + " description"),
	})
	require.NoError(t, err)
	return data
}

func id(n int64) common.Hash {
	return common.BigToHash(big.NewInt(n))
}

func (f *fixture) add(n int64, index int64, block uint64) {
	f.backend.Emit(registryAddr, f.registryABI, "RecipientAdded", block, [32]byte(id(n)), itemData(f.t, "Project"), big.NewInt(index), big.NewInt(int64(block)))
}

func (f *fixture) remove(n int64, block uint64) {
	f.backend.Emit(registryAddr, f.registryABI, "RecipientRemoved", block, [32]byte(id(n)), big.NewInt(int64(block)))
}

func (f *fixture) submit(n int64, block uint64, status model.CurateItemStatus, name string) {
	data := itemData(f.t, name)
	f.items[id(n)] = curatedItem{data: data, status: status}
	f.backend.Emit(tcrAddr, f.tcrABI, "ItemSubmitted", block, [32]byte(id(n)), common.HexToAddress("0x5b"), big.NewInt(n), data)
}

func window(start, end uint64) Window {
	return Window{StartBlock: &start, EndBlock: &end}
}

func find(projects []*model.ProjectRecord, n int64) *model.ProjectRecord {
	for _, p := range projects {
		if p.ID == id(n).Hex() {
			return p
		}
	}
	return nil
}

func TestListProjectsRemovalRelativeToStartBlock(t *testing.T) {
	f := newFixture(t).withSchema()
	f.add(5, 2, 20)
	f.remove(5, 40)

	cases := []struct {
		name       string
		window     Window
		wantHidden bool
		wantLocked bool
	}{
		{name: "removed before round", window: window(50, 200), wantHidden: true},
		{name: "removed at round start", window: window(40, 200), wantHidden: true},
		{name: "removed during round", window: window(10, 200), wantLocked: true},
		{name: "no window", window: Window{}, wantHidden: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			projects, err := f.reconciler().ListProjects(context.Background(), registryAddr, tc.window)
			require.NoError(t, err)
			require.Len(t, projects, 1)
			assert.Equal(t, int64(2), projects[0].Index)
			assert.Equal(t, tc.wantHidden, projects[0].IsHidden)
			assert.Equal(t, tc.wantLocked, projects[0].IsLocked)
		})
	}
}

func TestListProjectsAddedAfterEndBlockIsHidden(t *testing.T) {
	f := newFixture(t).withSchema()
	f.add(1, 1, 100)
	f.add(2, 2, 200)
	f.add(3, 3, 250)

	projects, err := f.reconciler().ListProjects(context.Background(), registryAddr, window(50, 200))
	require.NoError(t, err)
	require.Len(t, projects, 3)

	assert.False(t, find(projects, 1).IsHidden)
	assert.False(t, find(projects, 1).IsLocked)
	assert.True(t, find(projects, 2).IsHidden)
	assert.True(t, find(projects, 3).IsHidden)

	p := find(projects, 1)
	assert.Equal(t, "Project", p.Name)
	assert.Equal(t, "Project description", p.Description)
	assert.Equal(t, "https://ipfs.io/ipfs/QmLogo", p.ImageURL)
	assert.Equal(t, common.HexToAddress("0xc0").Hex(), p.Address)
	assert.Nil(t, p.Extra)
}

func TestListProjectsMergesRegisteredCuratedItems(t *testing.T) {
	f := newFixture(t).withSchema()
	f.add(5, 1, 20)
	f.submit(5, 10, model.CurateItemRegistered, "Local")
	f.submit(9, 30, model.CurateItemRegistered, "Curated")
	f.submit(9, 31, model.CurateItemRegistered, "Curated")
	f.submit(10, 32, model.CurateItemRegistrationRequested, "Pending")

	projects, err := f.reconciler().ListProjects(context.Background(), registryAddr, window(0, 1000))
	require.NoError(t, err)
	require.Len(t, projects, 2)

	assert.Equal(t, id(5).Hex(), projects[0].ID)
	assert.Equal(t, id(9).Hex(), projects[1].ID)

	curated := projects[1]
	assert.Equal(t, int64(0), curated.Index)
	assert.Equal(t, "Curated", curated.Name)
	require.NotNil(t, curated.Extra)
	assert.Equal(t, "Registered", curated.Extra.TCRItemStatus)
	assert.Equal(t, "https://curate.kleros.io/tcr/"+tcrAddr.Hex()+"/"+id(9).Hex(), curated.Extra.TCRItemURL)
	assert.Nil(t, find(projects, 10))
}

func TestListProjectsIDsAreUnique(t *testing.T) {
	f := newFixture(t).withSchema()
	f.add(7, 1, 10)
	f.add(8, 2, 11)
	f.add(7, 3, 12)
	f.remove(7, 13)
	f.remove(7, 14)
	for i := uint64(0); i < 3; i++ {
		f.submit(7, 20+i, model.CurateItemRegistered, "Dup")
		f.submit(11, 30+i, model.CurateItemRegistered, "Other")
	}

	projects, err := f.reconciler().ListProjects(context.Background(), registryAddr, window(5, 1000))
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, p := range projects {
		assert.False(t, seen[p.ID], "duplicate id %s", p.ID)
		seen[p.ID] = true
	}
	require.Len(t, projects, 3)
	assert.Equal(t, id(7).Hex(), projects[0].ID)
	assert.Equal(t, int64(3), projects[0].Index)
	assert.True(t, projects[0].IsLocked)
	assert.Equal(t, id(8).Hex(), projects[1].ID)
	assert.Equal(t, id(11).Hex(), projects[2].ID)
}

func TestListProjectsKeepsUndecodableMetadata(t *testing.T) {
	f := newFixture(t).withSchema()
	f.backend.Emit(registryAddr, f.registryABI, "RecipientAdded", 10, [32]byte(id(4)), []byte{0xff}, big.NewInt(4), big.NewInt(0))

	projects, err := f.reconciler().ListProjects(context.Background(), registryAddr, Window{})
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, id(4).Hex(), projects[0].ID)
	assert.Equal(t, int64(4), projects[0].Index)
	assert.Empty(t, projects[0].Name)
}

func TestListProjectsKeepsDecodableColumns(t *testing.T) {
	f := newFixture(t).withSchema()
	data, err := rlp.EncodeToBytes([][]byte{
		[]byte("Good name"),
		{0x01, 0x02, 0x03},
		[]byte("/ipfs/QmLogo"),
		[]byte("Good description"),
	})
	require.NoError(t, err)
	f.backend.Emit(registryAddr, f.registryABI, "RecipientAdded", 10, [32]byte(id(6)), data, big.NewInt(1), big.NewInt(0))

	projects, err := f.reconciler().ListProjects(context.Background(), registryAddr, Window{})
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "Good name", projects[0].Name)
	assert.Equal(t, "Good description", projects[0].Description)
	assert.Equal(t, "https://ipfs.io/ipfs/QmLogo", projects[0].ImageURL)
	assert.Empty(t, projects[0].Address)
}

func TestListProjectsRejectsOversizedIndex(t *testing.T) {
	f := newFixture(t).withSchema()
	huge := new(big.Int).Lsh(big.NewInt(1), 70)
	f.backend.Emit(registryAddr, f.registryABI, "RecipientAdded", 10, [32]byte(id(3)), itemData(t, "Big"), huge, big.NewInt(0))

	_, err := f.reconciler().ListProjects(context.Background(), registryAddr, Window{})
	assert.True(t, errors.Is(err, model.ErrInvalidEvent))
}

func TestListProjectsSchemaUnavailable(t *testing.T) {
	t.Run("no meta evidence", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.reconciler().ListProjects(context.Background(), registryAddr, Window{})
		assert.True(t, errors.Is(err, model.ErrSchemaUnavailable))
	})

	t.Run("single meta evidence", func(t *testing.T) {
		f := newFixture(t)
		f.backend.Emit(tcrAddr, f.tcrABI, "MetaEvidence", 1, big.NewInt(0), "/ipfs/QmRegistration/meta.json")
		_, err := f.reconciler().ListProjects(context.Background(), registryAddr, Window{})
		assert.True(t, errors.Is(err, model.ErrSchemaUnavailable))
	})

	t.Run("fetch failure", func(t *testing.T) {
		f := newFixture(t)
		f.backend.Emit(tcrAddr, f.tcrABI, "MetaEvidence", 1, big.NewInt(0), "/ipfs/QmGone/meta.json")
		f.backend.Emit(tcrAddr, f.tcrABI, "MetaEvidence", 1, big.NewInt(1), "/ipfs/QmClearing/meta.json")
		_, err := f.reconciler().ListProjects(context.Background(), registryAddr, Window{})
		assert.True(t, errors.Is(err, model.ErrSchemaUnavailable))
	})

	t.Run("empty columns", func(t *testing.T) {
		f := newFixture(t)
		f.backend.Emit(tcrAddr, f.tcrABI, "MetaEvidence", 1, big.NewInt(0), "/ipfs/QmClearing/meta.json")
		f.backend.Emit(tcrAddr, f.tcrABI, "MetaEvidence", 1, big.NewInt(1), "/ipfs/QmRegistration/meta.json")
		_, err := f.reconciler().ListProjects(context.Background(), registryAddr, Window{})
		assert.True(t, errors.Is(err, model.ErrSchemaUnavailable))
	})
}

func TestGetProject(t *testing.T) {
	f := newFixture(t).withSchema()
	f.add(5, 2, 20)
	f.remove(5, 40)
	f.add(6, 3, 21)
	f.submit(5, 10, model.CurateItemClearingRequested, "Five")
	f.submit(6, 11, model.CurateItemRegistered, "Six")
	f.submit(9, 12, model.CurateItemRegistered, "Nine")

	r := f.reconciler()

	five, err := r.GetProject(context.Background(), registryAddr, id(5))
	require.NoError(t, err)
	require.NotNil(t, five)
	assert.Equal(t, "Five", five.Name)
	assert.Equal(t, int64(2), five.Index)
	assert.True(t, five.IsLocked)
	assert.False(t, five.IsHidden)
	assert.Equal(t, "ClearingRequested", five.Extra.TCRItemStatus)

	six, err := r.GetProject(context.Background(), registryAddr, id(6))
	require.NoError(t, err)
	assert.Equal(t, int64(3), six.Index)
	assert.False(t, six.IsLocked)

	nine, err := r.GetProject(context.Background(), registryAddr, id(9))
	require.NoError(t, err)
	assert.Equal(t, int64(0), nine.Index)

	missing, err := r.GetProject(context.Background(), registryAddr, id(404))
	require.NoError(t, err)
	assert.Nil(t, missing)
}
