package devices

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"openwan/internal/gateway"
	"openwan/internal/models"

	"github.com/gorilla/mux"
)

var wanLabels = map[string]bool{"WAN1": true, "WAN2": true, "WAN3": true, "WAN4": true}

type HTTP struct {
	store *Store
	gw    *gateway.Client
}

func NewHTTP(store *Store, gw *gateway.Client) *HTTP {
	return &HTTP{store: store, gw: gw}
}

func (h *HTTP) RegisterRoutes(r *mux.Router) {
	// CRUD
	r.HandleFunc("/devices", h.create).Methods(http.MethodPost)
	r.HandleFunc("/devices", h.list).Methods(http.MethodGet)
	r.HandleFunc("/devices/manager", h.countByManager).Methods(http.MethodGet)
	r.HandleFunc("/devices/site/{siteId}", h.listBySite).Methods(http.MethodGet)

	// gateway passthrough (по строковому deviceId)
	r.HandleFunc("/devices/status/{deviceId}", h.wanCategory).Methods(http.MethodGet)
	r.HandleFunc("/devices/{deviceId}/data", h.allData).Methods(http.MethodGet)
	r.HandleFunc("/devices/{deviceId}/wan-ip", h.wanIP).Methods(http.MethodGet)
	r.HandleFunc("/devices/{deviceId}/interface", h.interfaces).Methods(http.MethodGet)
	r.HandleFunc("/devices/{deviceId}/tool/netwatch", h.netwatch).Methods(http.MethodGet)

	// по строковому deviceId для детальной карточки, числовой PK — для update/delete
	r.HandleFunc("/devices/{deviceId}", h.findOne).Methods(http.MethodGet)
	r.HandleFunc("/devices/{id:[0-9]+}", h.update).Methods(http.MethodPut, http.MethodPatch)
	r.HandleFunc("/devices/{id:[0-9]+}", h.remove).Methods(http.MethodDelete)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// target собирает реквизиты management API устройства по его identity.
func (h *HTTP) target(deviceID string) (gateway.Target, error) {
	d, found, err := h.store.FindByDeviceID(deviceID)
	if err != nil {
		return gateway.Target{}, err
	}
	if !found {
		return gateway.Target{}, ErrNotFound
	}
	return gateway.Target{
		IP:       d.DeviceIP,
		Port:     d.DevicePort,
		Username: d.DeviceUsername,
		Password: d.DevicePassword,
	}, nil
}

// writeGatewayErr: не нашли устройство — 404; устройство не ответило — 400
// с именем эндпойнта и причиной (ретраев нет, решает вызывающий).
func writeGatewayErr(w http.ResponseWriter, deviceID string, err error) {
	if errors.Is(err, ErrNotFound) {
		models.WriteProblem(w, http.StatusNotFound, "Not found",
			fmt.Sprintf("device with ID %s not found", deviceID), nil)
		return
	}
	var ue *gateway.UnreachableError
	if errors.As(err, &ue) {
		models.WriteProblem(w, http.StatusBadRequest, "Gateway unreachable", ue.Error(),
			map[string]string{"deviceId": deviceID, "endpoint": ue.Endpoint})
		return
	}
	models.WriteProblem(w, http.StatusInternalServerError, "Internal error", err.Error(), nil)
}

func (h *HTTP) create(w http.ResponseWriter, r *http.Request) {
	var d models.Device
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad request", "invalid json body", nil)
		return
	}
	if d.DeviceID == "" {
		models.WriteProblem(w, http.StatusBadRequest, "Bad request", "deviceId is required", nil)
		return
	}
	if d.PortCount < 1 || d.PortCount > 4 {
		models.WriteProblem(w, http.StatusBadRequest, "Bad request", "portCount must be between 1 and 4", nil)
		return
	}
	if err := h.store.Create(&d); err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "Create failed", err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *HTTP) list(w http.ResponseWriter, r *http.Request) {
	var (
		out []models.Device
		err error
	)
	switch {
	case r.URL.Query().Get("adminId") != "":
		id, perr := strconv.ParseUint(r.URL.Query().Get("adminId"), 10, 64)
		if perr != nil {
			models.WriteProblem(w, http.StatusBadRequest, "Bad request", "adminId must be a valid number", nil)
			return
		}
		out, err = h.store.ListByAdmin(uint(id))
	case r.URL.Query().Get("managerId") != "":
		id, perr := strconv.ParseUint(r.URL.Query().Get("managerId"), 10, 64)
		if perr != nil {
			models.WriteProblem(w, http.StatusBadRequest, "Bad request", "managerId must be a valid number", nil)
			return
		}
		out, err = h.store.ListByManager(uint(id))
	default:
		out, err = h.store.List()
	}
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "Fetch failed", err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTP) countByManager(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.URL.Query().Get("managerId"), 10, 64)
	if err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad request", "invalid managerId", nil)
		return
	}
	n, err := h.store.CountByManager(uint(id))
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "Fetch failed", err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"managerId": id, "count": n})
}

func (h *HTTP) listBySite(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["siteId"], 10, 64)
	if err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad request", "siteId must be a valid number", nil)
		return
	}
	out, err := h.store.ListBySite(uint(id))
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "Fetch failed", err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// findOne: сначала пробуем строковый deviceId, затем числовой PK.
func (h *HTTP) findOne(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["deviceId"]
	d, found, err := h.store.FindByDeviceID(key)
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "Fetch failed", err.Error(), nil)
		return
	}
	if !found {
		if id, perr := strconv.ParseUint(key, 10, 64); perr == nil {
			d, found, err = h.store.FindByID(uint(id))
			if err != nil {
				models.WriteProblem(w, http.StatusInternalServerError, "Fetch failed", err.Error(), nil)
				return
			}
		}
	}
	if !found {
		models.WriteProblem(w, http.StatusNotFound, "Not found",
			fmt.Sprintf("device with ID %s not found", key), nil)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *HTTP) update(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	var patch map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad request", "invalid json body", nil)
		return
	}
	// редактируемые поля — как в форме устройства; остальное игнорируем
	allowed := map[string]string{
		"deviceName": "device_name", "siteId": "site_id", "deviceType": "device_type",
		"deviceIp": "device_ip", "devicePort": "device_port", "portCount": "port_count",
		"emailId": "email_id", "deviceUsername": "device_username",
		"devicePassword": "device_password", "adminId": "admin_id", "managerId": "manager_id",
	}
	cols := make(map[string]interface{}, len(patch))
	for k, v := range patch {
		col, ok := allowed[k]
		if !ok {
			continue
		}
		if k == "emailId" {
			// нормализуем в JSON-массив прямо на границе
			b, _ := json.Marshal(v)
			var l models.StringList
			_ = l.UnmarshalJSON(b)
			v, _ = l.Value()
		}
		cols[col] = v
	}
	d, err := h.store.Update(uint(id), cols)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			models.WriteProblem(w, http.StatusNotFound, "Not found",
				fmt.Sprintf("device with ID %d not found", id), nil)
			return
		}
		models.WriteProblem(w, http.StatusInternalServerError, "Update failed", err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *HTTP) remove(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err := h.store.Delete(uint(id)); err != nil {
		if errors.Is(err, ErrNotFound) {
			models.WriteProblem(w, http.StatusNotFound, "Not found",
				fmt.Sprintf("device with ID %d not found", id), nil)
			return
		}
		models.WriteProblem(w, http.StatusInternalServerError, "Delete failed", err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Device with ID %d deleted successfully", id),
	})
}

// GET /devices/{deviceId}/data — агрегированный снапшот устройства как есть.
func (h *HTTP) allData(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["deviceId"]
	t, err := h.target(deviceID)
	if err != nil {
		writeGatewayErr(w, deviceID, err)
		return
	}
	snap, err := h.gw.FetchAll(r.Context(), t)
	if err != nil {
		writeGatewayErr(w, deviceID, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// GET /devices/{deviceId}/wan-ip?wan=WAN1..WAN4 — адресные записи интерфейса,
// помеченного комментарием; 404 на неизвестный лейбл или непомеченный слот.
func (h *HTTP) wanIP(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["deviceId"]
	wan := r.URL.Query().Get("wan")
	if !wanLabels[wan] {
		models.WriteProblem(w, http.StatusNotFound, "Not found",
			fmt.Sprintf("invalid WAN type: %s", wan), nil)
		return
	}
	t, err := h.target(deviceID)
	if err != nil {
		writeGatewayErr(w, deviceID, err)
		return
	}
	iface, err := h.gw.FindInterfaceByComment(r.Context(), t, wan)
	if err != nil {
		writeGatewayErr(w, deviceID, err)
		return
	}
	if iface == nil {
		models.WriteProblem(w, http.StatusNotFound, "Not found",
			fmt.Sprintf("%s interface not found for device %s", wan, deviceID), nil)
		return
	}
	addrs, err := h.gw.FetchAddresses(r.Context(), t, iface.Name)
	if err != nil {
		writeGatewayErr(w, deviceID, err)
		return
	}
	writeJSON(w, http.StatusOK, addrs)
}

// GET /devices/{deviceId}/interface — passthrough, 404 на пустой список.
func (h *HTTP) interfaces(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["deviceId"]
	t, err := h.target(deviceID)
	if err != nil {
		writeGatewayErr(w, deviceID, err)
		return
	}
	ifaces, err := h.gw.FetchInterfaces(r.Context(), t)
	if err != nil {
		writeGatewayErr(w, deviceID, err)
		return
	}
	if len(ifaces) == 0 {
		models.WriteProblem(w, http.StatusNotFound, "Not found",
			fmt.Sprintf("no interfaces found for device %s", deviceID), nil)
		return
	}
	writeJSON(w, http.StatusOK, ifaces)
}

// GET /devices/{deviceId}/tool/netwatch — passthrough.
func (h *HTTP) netwatch(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["deviceId"]
	t, err := h.target(deviceID)
	if err != nil {
		writeGatewayErr(w, deviceID, err)
		return
	}
	hosts, err := h.gw.NetwatchHosts(r.Context(), t)
	if err != nil {
		writeGatewayErr(w, deviceID, err)
		return
	}
	writeJSON(w, http.StatusOK, hosts)
}

// GET /devices/status/{deviceId} — категория устройства по активным WAN:
// full working / partial working / no working.
func (h *HTTP) wanCategory(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["deviceId"]
	d, found, err := h.store.FindByDeviceID(deviceID)
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "Fetch failed", err.Error(), nil)
		return
	}
	if !found {
		models.WriteProblem(w, http.StatusNotFound, "Not found",
			fmt.Sprintf("device with ID %s not found", deviceID), nil)
		return
	}
	t := gateway.Target{IP: d.DeviceIP, Port: d.DevicePort, Username: d.DeviceUsername, Password: d.DevicePassword}

	total := d.PortCount
	if total < 1 || total > 4 {
		total = 4
	}
	active := 0
	for i := 1; i <= total; i++ {
		info, err := h.gw.ResolveWANAddress(r.Context(), t, fmt.Sprintf("WAN%d", i))
		if err != nil {
			writeGatewayErr(w, deviceID, err)
			return
		}
		if info.Status == "Connected" {
			active++
		}
	}

	category := "no working"
	switch {
	case active == total:
		category = "full working"
	case active > 0:
		category = "partial working"
	}
	writeJSON(w, http.StatusOK, map[string]string{"deviceId": deviceID, "category": category})
}
