package dataset

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/muzzle/internal/recordio"
)

type fixture struct {
	root string
	save string
}

func newFixture(t *testing.T, list string, images map[string][]byte) fixture {
	t.Helper()
	f := fixture{root: t.TempDir(), save: t.TempDir()}
	for name, data := range images {
		path := filepath.Join(f.root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, data, 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(f.save, ListFile), []byte(list), 0o644))
	return f
}

func TestPack_EndToEnd(t *testing.T) {
	f := newFixture(t,
		"3\t0.0\ta.jpg\n7\t0.0\tb.jpg\n",
		map[string][]byte{"a.jpg": []byte("AAAA-bytes"), "b.jpg": []byte("BB")},
	)

	var progress bytes.Buffer
	res, err := Pack(context.Background(), Options{
		ImageRoot: f.root,
		SaveDir:   f.save,
		Progress:  &progress,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Records)
	assert.Equal(t, 7, res.MaxIndex)
	assert.Equal(t, 8, res.NumClasses())
	assert.NotEmpty(t, progress.String())

	r, err := recordio.Open(res.IdxPath, res.RecPath)
	require.NoError(t, err)
	defer func() {
		_ = r.Close()
	}()
	assert.Equal(t, []int{0, 1, 2}, r.Keys())

	h, payload, err := r.Read(0)
	require.NoError(t, err)
	assert.Equal(t, []float32{8, 8}, h.Labels)
	assert.Empty(t, payload)

	h, payload, err = r.Read(1)
	require.NoError(t, err)
	assert.Equal(t, float32(3), h.Label)
	assert.Equal(t, uint64(1), h.ID)
	assert.Equal(t, []byte("AAAA-bytes"), payload)

	h, payload, err = r.Read(2)
	require.NoError(t, err)
	assert.Equal(t, float32(7), h.Label)
	assert.Equal(t, []byte("BB"), payload)
}

func TestPack_SecondaryLabel(t *testing.T) {
	f := newFixture(t,
		"0\t12\tdir/x.png\n1\t4.5\tdir/y.png\n",
		map[string][]byte{"dir/x.png": []byte("x"), "dir/y.png": []byte("y")},
	)

	res, err := Pack(context.Background(), Options{
		ImageRoot:   f.root,
		SaveDir:     f.save,
		LabelColumn: LabelSecondary,
	})
	require.NoError(t, err)

	r, err := recordio.Open(res.IdxPath, res.RecPath)
	require.NoError(t, err)
	defer func() {
		_ = r.Close()
	}()

	h, _, err := r.Read(0)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 2}, h.Labels)

	h, _, err = r.Read(1)
	require.NoError(t, err)
	assert.Equal(t, float32(12), h.Label)

	h, _, err = r.Read(2)
	require.NoError(t, err)
	assert.Equal(t, float32(4.5), h.Label)
}

func TestPack_Failures(t *testing.T) {
	t.Run("unreadable image aborts", func(t *testing.T) {
		f := newFixture(t,
			"0\t0\ta.jpg\n1\t0\tmissing.jpg\n",
			map[string][]byte{"a.jpg": []byte("a")},
		)
		_, err := Pack(context.Background(), Options{ImageRoot: f.root, SaveDir: f.save})
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.Contains(t, err.Error(), "row 2")
	})

	t.Run("empty list", func(t *testing.T) {
		f := newFixture(t, "\n\n", nil)
		_, err := Pack(context.Background(), Options{ImageRoot: f.root, SaveDir: f.save})
		assert.ErrorIs(t, err, ErrEmptyList)
	})

	t.Run("missing list", func(t *testing.T) {
		_, err := Pack(context.Background(), Options{ImageRoot: t.TempDir(), SaveDir: t.TempDir()})
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("bad label column", func(t *testing.T) {
		_, err := Pack(context.Background(), Options{SaveDir: t.TempDir(), LabelColumn: "third"})
		assert.Error(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		f := newFixture(t, "0\t0\ta.jpg\n", map[string][]byte{"a.jpg": []byte("a")})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Pack(ctx, Options{ImageRoot: f.root, SaveDir: f.save})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestReadList(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		want    []Entry
		wantErr bool
	}{
		{
			name:    "rows with blank lines",
			content: "3\t0.0\ta.jpg\n\n7\t1\tsub/b.jpg\n",
			want: []Entry{
				{Index: 3, Secondary: 0, Path: "a.jpg"},
				{Index: 7, Secondary: 1, Path: "sub/b.jpg"},
			},
		},
		{name: "too few fields", content: "3\ta.jpg\n", wantErr: true},
		{name: "non-numeric index", content: "x\t0\ta.jpg\n", wantErr: true},
		{name: "non-numeric label", content: "1\ty\ta.jpg\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".lst")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			got, err := ReadList(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMaxIndex(t *testing.T) {
	m, err := MaxIndex([]Entry{{Index: 4}, {Index: 9}, {Index: 2}})
	require.NoError(t, err)
	assert.Equal(t, 9, m)

	_, err = MaxIndex(nil)
	assert.ErrorIs(t, err, ErrEmptyList)
}

func TestParseLabelColumn(t *testing.T) {
	c, err := ParseLabelColumn("")
	require.NoError(t, err)
	assert.Equal(t, LabelPrimary, c)

	c, err = ParseLabelColumn("secondary")
	require.NoError(t, err)
	assert.Equal(t, LabelSecondary, c)

	_, err = ParseLabelColumn("both")
	assert.Error(t, err)
}
