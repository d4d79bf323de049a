package onnx

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/saturnino-fabrica-de-software/muzzle/internal/model"
)

// base carries the metadata and session shared by every onnx handler
type base struct {
	rt          *Runtime
	task        string
	path        string
	inputName   string
	outputNames []string
	inputShape  []int64
	mean        float32
	std         float32

	mu   sync.RWMutex
	sess *ort.DynamicAdvancedSession
}

func (b *base) TaskName() string    { return b.task }
func (b *base) InputShape() []int64 { return b.inputShape }
func (b *base) InputMean() float32  { return b.mean }
func (b *base) InputStd() float32   { return b.std }

// open creates the inference session for the target, replacing any
// previous one.
func (b *base) open(target model.ExecutionTarget) error {
	opts, err := b.rt.sessionOptions(target)
	if err != nil {
		return err
	}
	defer func() {
		_ = opts.Destroy()
	}()

	sess, err := ort.NewDynamicAdvancedSession(b.path, []string{b.inputName}, b.outputNames, opts)
	if err != nil {
		return fmt.Errorf("create session for %s: %w", b.path, err)
	}

	b.mu.Lock()
	old := b.sess
	b.sess = sess
	b.mu.Unlock()

	if old != nil {
		_ = old.Destroy()
	}
	return nil
}

func (b *base) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sess == nil {
		return nil
	}
	err := b.sess.Destroy()
	b.sess = nil
	return err
}

// run feeds one NCHW float32 blob and returns a copy of every output,
// in the order of outputNames.
func (b *base) run(blob []float32, height, width int) ([][]float32, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.sess == nil {
		return nil, fmt.Errorf("%s: %w", b.task, ErrNotPrepared)
	}

	input, err := ort.NewTensor(ort.NewShape(1, 3, int64(height), int64(width)), blob)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer func() {
		_ = input.Destroy()
	}()

	// nil outputs are allocated by onnxruntime
	outputs := make([]ort.Value, len(b.outputNames))
	if err := b.sess.Run([]ort.Value{input}, outputs); err != nil {
		return nil, fmt.Errorf("run %s: %w", b.task, err)
	}
	defer func() {
		for _, v := range outputs {
			if v != nil {
				_ = v.Destroy()
			}
		}
	}()

	results := make([][]float32, len(outputs))
	for i, v := range outputs {
		t, ok := v.(*ort.Tensor[float32])
		if !ok {
			return nil, fmt.Errorf("%s output %s: %w", b.task, b.outputNames[i], ErrUnexpectedOutput)
		}
		data := t.GetData()
		results[i] = make([]float32, len(data))
		copy(results[i], data)
	}

	return results, nil
}
