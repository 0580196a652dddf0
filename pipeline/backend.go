package pipeline

import (
	"errors"
	"fmt"

	"dictate/config"
	"dictate/encoder"
	"dictate/log"
	"dictate/transcriber"
)

var ErrNoModel = errors.New("no local model installed")

// BackendFactory constructs the two transcription backends from settings.
type BackendFactory interface {
	Local(modelPath string, s config.Settings) (transcriber.Backend, error)
	Cloud(s config.Settings) (transcriber.Backend, error)
}

type defaultBackends struct{}

// DefaultBackends builds the subprocess and HTTP backends.
var DefaultBackends BackendFactory = defaultBackends{}

func (defaultBackends) Local(modelPath string, s config.Settings) (transcriber.Backend, error) {
	l, err := transcriber.NewLocal(transcriber.LocalConfig{
		Command:   s.WhisperCommand,
		ModelPath: modelPath,
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (defaultBackends) Cloud(s config.Settings) (transcriber.Backend, error) {
	format, err := encoder.ParseFormat(s.UploadFormat)
	if err != nil {
		return nil, err
	}
	c, err := transcriber.NewCloud(transcriber.CloudConfig{
		APIKey: s.OpenAIAPIKey,
		URL:    s.APIURL,
		Model:  s.APIModel,
		Format: format,
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// buildBackend returns nil when no backend can be constructed; the user has
// been notified in that case.
func (o *Orchestrator) buildBackend(s config.Settings) (transcriber.Backend, string) {
	if s.Backend() == config.BackendCloud {
		b, err := o.backends.Cloud(s)
		if err != nil {
			log.Errorf("cloud backend unavailable: %v", err)
			if errors.Is(err, transcriber.ErrNoCredential) {
				o.notifier.Notify("API Key Required", err.Error())
			} else {
				o.notifier.Notify("Transcription Unavailable", err.Error())
			}
			return nil, ""
		}
		return b, ""
	}

	name, err := o.resolveModel(s)
	if err != nil {
		log.Warnf("local backend unavailable: %v", err)
		o.notifier.Notify("No Model", "Download a model in Settings to use local mode")
		return nil, ""
	}
	path, err := o.models.Path(name)
	if err != nil {
		log.Errorf("resolve model %s: %v", name, err)
		o.notifier.Notify("No Model", "Download a model in Settings to use local mode")
		return nil, ""
	}
	b, err := o.backends.Local(path, s)
	if err != nil {
		log.Errorf("local backend unavailable: %v", err)
		o.notifier.Notify("Transcription Unavailable", err.Error())
		return nil, ""
	}
	return b, name
}

// resolveModel falls back to the first installed model in catalog order.
// The caller persists a fallback once no lock is held.
func (o *Orchestrator) resolveModel(s config.Settings) (string, error) {
	if o.models.IsInstalled(s.LocalModel) {
		return s.LocalModel, nil
	}
	installed := o.models.Installed()
	if len(installed) == 0 {
		return "", ErrNoModel
	}
	log.Warnf("model %q not installed, falling back to %s", s.LocalModel, installed[0])
	return installed[0], nil
}

// persistFallback records that model replaced the configured one.
func (o *Orchestrator) persistFallback(configured, model string) {
	if err := o.settings.SetLocalModel(model); err != nil {
		log.Errorf("persist fallback model: %v", err)
	}
	o.notifier.Notify("Model Changed", fmt.Sprintf("%s is not installed, using %s", configured, model))
}
